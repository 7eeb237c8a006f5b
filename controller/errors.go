package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("failed to login")

	ErrCreateSession      = errors.New("failed to create an agent session")
	ErrGetSessions        = errors.New("failed to get agent sessions")
	ErrDeleteSession      = errors.New("failed to delete an agent session")
	ErrGetSessionMessages = errors.New("failed to get session messages")
	ErrUpdateSessionTitle = errors.New("failed to update session title")

	ErrCreateAgent = errors.New("failed to create an agent")
	ErrCallAgent   = errors.New("error while calling agent")

	ErrCreateBrain = errors.New("failed to create a brain")
	ErrGetBrains   = errors.New("failed to get brains")
	ErrUpdateBrain = errors.New("failed to update brain")
	ErrDeleteBrain = errors.New("failed to delete brain")

	ErrGeneratePolicyToken = errors.New("failed to generate policy token")
	ErrUploadKnowledge     = errors.New("failed to register uploaded knowledge")
	ErrCrawlWebKnowledge   = errors.New("failed to register web knowledge")
	ErrAddSyncKnowledge    = errors.New("failed to register sync knowledge")
	ErrDuplicateKnowledge  = errors.New("knowledge with same content already in brain")
	ErrGetKnowledge        = errors.New("failed to get knowledge")
	ErrLinkKnowledge       = errors.New("failed to link knowledge to brain")
	ErrDeleteKnowledge     = errors.New("failed to delete knowledge")
	ErrRetryKnowledge      = errors.New("failed to retry knowledge")
	ErrGetPreSignedURL     = errors.New("failed to get presigned url")
	ErrSearchKnowledge     = errors.New("failed to search knowledge")

	ErrCreateSync = errors.New("failed to create sync connection")
	ErrGetSyncs   = errors.New("failed to get sync connections")
	ErrDeleteSync = errors.New("failed to delete sync connection")
	ErrListSync   = errors.New("failed to list remote files")
)
