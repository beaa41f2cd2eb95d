package constants

const (
	MAX_USERNAME_LENGTH        = 64
	MAX_TITLE_LENGTH           = 256
	MAX_COLLECTION_NAME_LENGTH = 128
	MAX_COLLECTION_STAMPS      = 100
)
