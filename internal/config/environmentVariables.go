package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//worker pool
	RequestsPerNewWorkerCount int64 = 4
	MaxWorkerCount            int64 = 8
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	BufferLimit                     = 100

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 60 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisStoreDB       = 0
	RedisProbeTimeout  = 1500 * time.Millisecond
	RedisKeyPrefix     = "assist:"
	RedisEventChannel  = "assist:events"
	StorageSchemaValue = "1"

	//flat fallback lives here when no redis is reachable
	DefaultDataDir = "assist_data"

	//documents
	MaxUploadFileSize   int64 = 10 << 20
	MaxMultipartMemory  int64 = 32 << 20
	PipelineTimeout           = 5 * time.Minute
	PageExtractTimeout        = 10 * time.Second
	SimulatedUploadStep       = 150 * time.Millisecond
	UploadRequestTimeout      = 60 * time.Second
	ProgressAfterUpload       = 50
	ProgressAfterExtraction   = 70
	ProgressAfterSummary      = 90

	//search index
	MaxIndexedContentLength = 15000
	MinParagraphLength      = 20
	MaxHeadingLength        = 100
	HeadingScoreBoost       = 1.2
	MinQueryTokenLength     = 3
	DefaultSectionCount     = 3
	DetailSectionCount      = 5

	//context resolver
	RecentMessageWindow      = 5
	MaxContextDocuments      = 3
	MinContentForSections    = 1000
	MinQueryLengthForSection = 10
	MaxContextTokens         = 6000

	//llm
	DefaultLLMProvider       = "gemini"
	GeminiModelName          = "gemini-2.5-flash-lite-preview-09-2025"
	OpenAIModelName          = "gpt-4o-mini"
	LLMRequestTimeout        = 45 * time.Second
	ModelTemperature float32 = 0.7
	ModelContext             = "You are a helpful assistant working with documents the user uploaded. Keep the tone professional. If the documents do not contain the answer, say so."

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//notifications
	NotificationBurstWindow = 50 * time.Millisecond
	WebsocketWriteTimeout   = 5 * time.Second
	WebsocketSendBuffer     = 64
)
