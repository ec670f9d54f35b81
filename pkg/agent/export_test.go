package agent

var (
	CompressHistory   = compressHistory
	IsTokenLimitError = isTokenLimitError
)
