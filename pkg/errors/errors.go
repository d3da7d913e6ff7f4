package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized                 = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID                = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	InvalidToken                 = Definition{Code: "UNAUTHORIZED", Message: "Invalid token"}
	TokenGeneratorNotInitialized = Definition{Code: "TOKEN_GENERATOR_NOT_INITIALIZED", Message: "Token generator not initialized"}
)

// 漏打卡记录状态流转错误。
var (
	InvalidMissStatus       = Definition{Code: "INVALID_MISS_STATUS", Message: "Unknown missed check-in status"}
	InvalidStatusTransition = Definition{Code: "INVALID_STATUS_TRANSITION", Message: "Status transition not allowed"}
	MissRecordNotFound      = Definition{Code: "MISS_RECORD_NOT_FOUND", Message: "Missed check-in record not found"}
)

// 检测流程错误。
var (
	DetectionAlreadyRunning = Definition{Code: "DETECTION_ALREADY_RUNNING", Message: "Detection pass already running"}
	CompanyNotFound         = Definition{Code: "COMPANY_NOT_FOUND", Message: "Company not found"}
	InvalidDateRange        = Definition{Code: "INVALID_DATE_RANGE", Message: "Invalid date range"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:            Unauthorized,
	InvalidUserID.Code:           InvalidUserID,
	InvalidMissStatus.Code:       InvalidMissStatus,
	InvalidStatusTransition.Code: InvalidStatusTransition,
	MissRecordNotFound.Code:      MissRecordNotFound,
	DetectionAlreadyRunning.Code: DetectionAlreadyRunning,
	CompanyNotFound.Code:         CompanyNotFound,
	InvalidDateRange.Code:        InvalidDateRange,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
