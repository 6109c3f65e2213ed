package coupon

const (
	operationPurchase     = "purchase"
	operationRedeem       = "redeem"
	operationLookup       = "lookup_vehicle"
	operationReport       = "create_report"
	operationReportTriage = "update_report_status"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
