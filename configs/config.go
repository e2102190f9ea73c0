package configs

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	JWTSecret       string
	UserId          string
	UserName        string
	UserPassword    string
	LoanPeriodDays  int
	FineRatePerHour float64
	MaxActiveLoans  int
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	fineRate := 0.25
	if val := os.Getenv("FINE_RATE_PER_HOUR"); val != "" {
		_, err := fmt.Sscanf(val, "%f", &fineRate)
		if err != nil {
			log.Fatalf("Invalid FINE_RATE_PER_HOUR: %v", err)
		}
	}

	loanPeriodDays := 14
	if val := os.Getenv("LOAN_PERIOD_DAYS"); val != "" {
		fmt.Sscanf(val, "%d", &loanPeriodDays)
	}

	maxActiveLoans := 3
	if val := os.Getenv("MAX_ACTIVE_LOANS"); val != "" {
		fmt.Sscanf(val, "%d", &maxActiveLoans)
	}

	return Config{
		Port:            os.Getenv("PORT"),
		MongoURI:        os.Getenv("MONGO_URI"),
		DBName:          os.Getenv("DB_NAME"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		UserId:          os.Getenv("HARD_CODED_USER_ID"),
		UserName:        os.Getenv("HARD_CODED_USER_NAME"),
		UserPassword:    os.Getenv("HARD_CODED_USER_PASSWORD"),
		LoanPeriodDays:  loanPeriodDays,
		FineRatePerHour: fineRate,
		MaxActiveLoans:  maxActiveLoans,
	}
}
