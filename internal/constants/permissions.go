package constants

const (
	ViewDeals    = "view_deals"
	ManageDeals  = "manage_deals"
	ManageSplits = "manage_splits"
	ResyncLedger = "resync_ledger"
)
