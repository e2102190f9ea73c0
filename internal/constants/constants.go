package constants

const (
	Create     = "CREATE"
	Update     = "UPDATE"
	Delete     = "DELETE"
	Deactivate = "DEACTIVATE"

	RequestLoan  = "REQUEST_LOAN"
	ApproveLoan  = "APPROVE_LOAN"
	RejectLoan   = "REJECT_LOAN"
	ReturnLoan   = "RETURN_LOAN"
	RecordIntent = "RECORD_INTENT"
)
