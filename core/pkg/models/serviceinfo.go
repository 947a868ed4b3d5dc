package models

type APIServiceInfo struct {
	Version   string
	BuildSHA  string
	BuildTime string
}

type ServiceName string

const (
	CAServiceName     ServiceName = "ca"
	LedgerServiceName ServiceName = "ledger"
	EdgeServiceName   ServiceName = "edge"
)
