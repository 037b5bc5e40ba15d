package config

import "time"

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

const (
	AppName = "coparentcal"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig      = "config"
	FlagVersion     = "version"
	FlagDebug       = "debug"
	FlagSeed        = "seed"
	FlagDescConfig  = "Path to YAML config file"
	FlagDescVersion = "Show application version and exit"
	FlagDescDebug   = "Enable debug logging"
	FlagDescSeed    = "Seed the database with the demo family and exit"
	MsgVersionOut   = "%s version %s (%s)\n"
)

// -----------------------------------------------------------------------------
// Defaults & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultDBPath        = "coparentcal.db"
	DefaultLocale        = "en"
	DefaultFeedCron      = "*/15 * * * *"
	DefaultWindowMinutes = 30
	DefaultHorizonDays   = 60

	// MaxDayEvents is the display budget per day cell. Truncation is a
	// rendering concern, not data loss; the full event set stays queryable.
	MaxDayEvents = 3

	// UpcomingLookaheadDays bounds the sidebar's upcoming-transitions scan.
	UpcomingLookaheadDays = 14
)

// -----------------------------------------------------------------------------
// iCalendar Feed
// -----------------------------------------------------------------------------

const (
	ICalVersion     = "2.0"
	ICalProdid      = "-//coparentcal//Custody Feed//EN"
	ICalScale       = "GREGORIAN"
	ICalMethod      = "PUBLISH"
	ICalDomain      = "coparentcal"
	UIDSalt         = "coparentcal-v1"
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s@%s"
	FormatCalName   = "Custody Calendar: %s"
	FormatHandover  = "%s hands over to %s"

	// iCal property names
	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTEnd      = "DTEND"
	PropDTStamp    = "DTSTAMP"
	PropLocation   = "LOCATION"
	PropDesc       = "DESCRIPTION"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"
	PropRefresh    = "REFRESH-INTERVAL"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when the
	// horizon contains nothing, so subscribed clients never see an
	// invalid feed.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	HTTPTimeout        = 30 * time.Second
	MaxRosterBytes     = 8 * 1024 * 1024 // roster imports are small contact files
	RetryAfterSeconds  = "10"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
)

// -----------------------------------------------------------------------------
// HTTP Routes & Parameters
// -----------------------------------------------------------------------------

const (
	RouteHealth    = "/health"
	RouteMonth     = "/api/families/:id/calendar/:year/:month"
	RouteConflicts = "/api/families/:id/conflicts"
	RouteFeed      = "/feeds/:file"

	ParamID     = "id"
	ParamYear   = "year"
	ParamMonth  = "month"
	ParamFile   = "file"
	QueryWindow = "window"

	FeedExtension = ".ics"
	AuthRealm     = "coparentcal"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a hex digest argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// vCard Roster
// -----------------------------------------------------------------------------

const (
	UserAgent = AppName + "/1.0"

	VCardFN    = "FN"
	VCardN     = "N"
	VCardEmail = "EMAIL"
	VCardTel   = "TEL"

	// FallbackName is used when a card carries neither FN nor N.
	FallbackName = "Unknown contact"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigRead     = "failed to read config file"
	ErrConfigParse    = "failed to parse config file"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrFeedEncode     = "failed to encode iCalendar feed"
	ErrFeedRefresh    = "feed refresh failed"
	ErrCronSpec       = "invalid feed refresh cron expression"
	ErrStoreOpen      = "failed to open database"
	ErrStoreSchema    = "failed to create schema"
	ErrRosterParse    = "failed to parse vCard roster"
	ErrRosterFetch    = "failed to fetch remote roster"
	ErrInvalidURL     = "invalid URL structure"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrLocalesAccess  = "failed to access embedded locales"
	ErrLocaleLoad     = "failed to load locale file"
	ErrAppFailed      = "application failed unexpectedly"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgNotFound     = "not found"
	HTTPMsgBadRequest   = "bad request"
	HTTPMsgInternalErr  = "internal server error"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgFeedUpdated    = "Feed cache updated"
	MsgFeedCached     = "Feed cache entry built"
	MsgFeedScheduled  = "Feed refresh scheduled"
	MsgMonthBuilt     = "Month grid built"
	MsgStoreOpened    = "Database opened"
	MsgLocaleSelect   = "Locale selected"
	MsgSeedDone       = "Database seeded"
	MsgExpandTrunc    = "Recurring event expansion truncated at cap"
	MsgSkippedCard    = "Skipping malformed contact card"
	MsgLocaleLoaded   = "Locale loaded"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgTransMissing   = "Missing translation key"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyToday    = "label_today"
	TKeyTomorrow = "label_tomorrow"
	TKeyExchange = "summary_exchange" // requires Time

	// Weekday keys are TKeyWeekdayPrefix + lowercase English weekday name.
	TKeyWeekdayPrefix = "weekday_"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyFamily    = "family_id"
	LogKeyYear      = "year"
	LogKeyMonth     = "month"
	LogKeyCount     = "count"
	LogKeyListen    = "listen"
	LogKeyPath      = "path"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyCap       = "cap"
	LogKeyEventID   = "event_id"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyCron      = "cron"
	LogKeyDuration  = "duration_ms"
	LogKeyVersion   = "version"
	LogKeyGoVer     = "go_version"
	LogKeyPID       = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompServer   = "server"
	CompCalendar = "calendar"
	CompRecur    = "recur"
	CompFeed     = "feed"
	CompStorage  = "storage"
	CompRoster   = "roster"
	CompI18n     = "i18n"
)
