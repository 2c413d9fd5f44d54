package metrics

const Namespace = "authsession"

const (
	StoreTypeMemory = "memory"
	StoreTypeFile   = "file"
	StoreTypeRedis  = "redis"
	StoreTypeSQLite = "sqlite"
)

const (
	StoreOperationGet    = "get"
	StoreOperationSet    = "set"
	StoreOperationDelete = "delete"
)

const (
	ExchangeKindInteractive = "interactive"
	ExchangeKindSilent      = "silent"
	ExchangeKindRefresh     = "refresh"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
	OutcomeTimeout   = "timeout"
)
