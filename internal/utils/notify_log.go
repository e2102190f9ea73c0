package utils

import (
	"context"
	"fmt"
)

func AppendToNotifyLog(ctx context.Context, patronID string, titleID string) {
	fmt.Printf("[NOTIFY LOG] Recorded reservation intent for patron %s on title %s\n", patronID, titleID)
}
