package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidSymbol        ErrorCode = 120
	ErrCodeInvalidAccount       ErrorCode = 121

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound  ErrorCode = 200
	ErrCodeQueryFailed   ErrorCode = 202
	ErrCodeJournalFailed ErrorCode = 206

	// Strategy errors (400-499)
	ErrCodeStrategyNotLoaded    ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeUnsupportedStrategy  ErrorCode = 403

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeMarketDataMissing ErrorCode = 502

	// Scheduler errors (600-699)
	ErrCodeSchedulerRunning    ErrorCode = 600
	ErrCodeSchedulerNotRunning ErrorCode = 601
	ErrCodeInvalidSchedule     ErrorCode = 602

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800

	// Brokerage errors (900-999)
	ErrCodeAuthentication ErrorCode = 900
	ErrCodeRateLimited    ErrorCode = 901
	ErrCodeConnectivity   ErrorCode = 902
	ErrCodeTimeout        ErrorCode = 903
	ErrCodeBrokerRejected ErrorCode = 904
	ErrCodeTokenStore     ErrorCode = 905
)
