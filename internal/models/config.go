package models

import "time"

// CurrentSchemaVersion is bumped whenever a stored shape changes in a way
// that requires migration on load.
const CurrentSchemaVersion = 1

// EnginePreference selects which audio engine to prefer.
type EnginePreference string

const (
	EngineAuto            EnginePreference = "auto"
	EngineLibVLC          EnginePreference = "vlc"
	EngineMPV             EnginePreference = "mpv"
	EngineFFplay          EnginePreference = "ffplay"
	EngineMediaFoundation EnginePreference = "mediafoundation"
)

// ValidEnginePreference reports whether p is one of the recognised values.
func ValidEnginePreference(p EnginePreference) bool {
	switch p {
	case EngineAuto, EngineLibVLC, EngineMPV, EngineFFplay, EngineMediaFoundation:
		return true
	default:
		return false
	}
}

// NetworkProfile records whether the user prefers responsiveness or
// tolerance of flaky connections. It is persisted and validated with the
// rest of AppConfig; no component reads it to size timeouts or retries.
type NetworkProfile string

const (
	NetworkStandard   NetworkProfile = "standard"
	NetworkBadNetwork NetworkProfile = "bad_network"
)

// ValidNetworkProfile reports whether p is one of the recognised values.
func ValidNetworkProfile(p NetworkProfile) bool {
	switch p {
	case NetworkStandard, NetworkBadNetwork:
		return true
	default:
		return false
	}
}

// GlyphSet selects how the UI renders icons that have no universal glyph.
type GlyphSet string

const (
	GlyphAuto    GlyphSet = "auto"
	GlyphUnicode GlyphSet = "unicode"
	GlyphASCII   GlyphSet = "ascii"
)

// ValidGlyphSet reports whether g is one of the recognised values.
func ValidGlyphSet(g GlyphSet) bool {
	switch g {
	case GlyphAuto, GlyphUnicode, GlyphASCII:
		return true
	default:
		return false
	}
}

// SortBy selects the sort key for episode lists.
type SortBy string

const (
	SortByPubDate  SortBy = "pubdate"
	SortByTitle    SortBy = "title"
	SortByPlayed   SortBy = "played"
	SortByProgress SortBy = "progress"
	SortByFeed     SortBy = "feed"
)

// ValidSortBy reports whether s is a recognised episode-list sort key.
func ValidSortBy(s SortBy) bool {
	switch s {
	case SortByPubDate, SortByTitle, SortByPlayed, SortByProgress, SortByFeed:
		return true
	default:
		return false
	}
}

// FeedSortBy selects the sort key for the feed list (`:sort feeds`).
type FeedSortBy string

const (
	FeedSortByTitle    FeedSortBy = "title"
	FeedSortByUpdated  FeedSortBy = "updated"
	FeedSortByUnplayed FeedSortBy = "unplayed"
)

// ValidFeedSortBy reports whether s is a recognised feed-list sort key.
func ValidFeedSortBy(s FeedSortBy) bool {
	switch s {
	case FeedSortByTitle, FeedSortByUpdated, FeedSortByUnplayed:
		return true
	default:
		return false
	}
}

// SortDir selects ascending or descending order.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// UiConfig holds pure layout preferences.
type UiConfig struct {
	PlayerAtTop bool `json:"player_at_top"`
}

// ViewDefaults holds the default list view the UI opens with.
type ViewDefaults struct {
	SortBy       SortBy  `json:"sort_by"`
	SortDir      SortDir `json:"sort_dir"`
	UnplayedOnly bool    `json:"unplayed_only"`
}

// LastSelection records the user's last navigation position, restored on
// the next launch.
type LastSelection struct {
	FeedID    *FeedID    `json:"feed_id,omitempty"`
	EpisodeID *EpisodeID `json:"episode_id,omitempty"`
	Search    string     `json:"search,omitempty"`
}

// SyncConfig holds the gPodder sync engine's persisted state. It is stored
// as the "sync" object of AppConfig in appsettings.json; no separate
// gpodder.json is written. The password goes to the OS keyring; only when
// the keyring is unusable is it kept here, in PlaintextPassword.
type SyncConfig struct {
	ServerURL string `json:"server_url,omitempty"`
	Username  string `json:"username,omitempty"`
	// DeviceID defaults to "podliner-<hostname>" (capped at 64 chars) the
	// first time sync is configured, but is user-overridable thereafter.
	DeviceID string `json:"device_id,omitempty"`
	AutoSync bool   `json:"auto_sync"`

	// SubsTimestamp and ActionsTimestamp are the gPodder API's opaque
	// monotonic cursors: the server echoes one back on every Pull/Push and
	// expects it on the next call so it can compute a delta.
	SubsTimestamp    int64 `json:"subs_timestamp"`
	ActionsTimestamp int64 `json:"actions_timestamp"`

	// LastKnownServerFeeds is the subscription URL set as of the last
	// successful Pull or Push, used to diff the local feed list on the next
	// Push without needing a round trip first.
	LastKnownServerFeeds []string `json:"last_known_server_feeds,omitempty"`

	// PlaintextPassword and PlaintextFallback are populated only when the
	// OS keyring could not be used; PlaintextFallback is surfaced to the
	// user once as a warning.
	PlaintextPassword string `json:"plaintext_password,omitempty"`
	PlaintextFallback bool   `json:"plaintext_fallback,omitempty"`

	// PendingActions accumulate while offline or between pushes, and are
	// cleared once a push to the episodes endpoint succeeds.
	PendingActions []SyncAction `json:"pending_actions,omitempty"`
}

// SyncActionKind is the gPodder episode action vocabulary.
type SyncActionKind string

const (
	SyncActionPlay     SyncActionKind = "play"
	SyncActionNew      SyncActionKind = "new"
	SyncActionDownload SyncActionKind = "download"
	SyncActionDelete   SyncActionKind = "delete"
)

// SyncAction is one queued episode-play action awaiting upload, keyed by
// the feed and episode URLs rather than local ids since the remote server
// has no notion of podliner's EpisodeID.
type SyncAction struct {
	PodcastURL string         `json:"podcast_url"`
	EpisodeURL string         `json:"episode_url"`
	Action     SyncActionKind `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	PositionS  int            `json:"position_s,omitempty"`
	TotalS     int            `json:"total_s,omitempty"`
}

// Configured reports whether enough is present to attempt a sync.
func (s SyncConfig) Configured() bool {
	return s.ServerURL != "" && s.Username != ""
}

// DefaultDeviceID builds "podliner-<hostname>", truncated to MaxDeviceIDLen.
func DefaultDeviceID(hostname string) string {
	id := "podliner-" + hostname
	if len(id) > MaxDeviceIDLen {
		id = id[:MaxDeviceIDLen]
	}
	return id
}

// MaxDeviceIDLen is the gPodder device id length ceiling.
const MaxDeviceIDLen = 64

// AppConfig is the persisted user-preference document, owned by the
// ConfigStore.
type AppConfig struct {
	SchemaVersion int `json:"schema_version"`

	EnginePreference EnginePreference `json:"engine_preference"`
	Volume           int              `json:"volume"` // 0..100
	Speed            float64          `json:"speed"`  // 0.25..4.0
	Theme            string           `json:"theme"`
	GlyphSet         GlyphSet         `json:"glyph_set"`
	NetworkProfile   NetworkProfile   `json:"network_profile"`
	StartOffline     bool             `json:"start_offline"`

	// WrapAdvance controls same-feed auto-advance once PubDate-DESC walk-off
	// reaches the end: wrap to the newest episode and continue rather than
	// stopping.
	WrapAdvance bool `json:"wrap_advance"`

	Ui            UiConfig      `json:"ui"`
	ViewDefaults  ViewDefaults  `json:"view_defaults"`
	LastSelection LastSelection `json:"last_selection"`
	Sync          SyncConfig    `json:"sync"`

	// EffectiveEngine records which engine auto-selection actually picked,
	// for diagnostics — not itself a preference.
	EffectiveEngine EnginePreference `json:"effective_engine,omitempty"`
}

// DefaultAppConfig returns the configuration used when no config file
// exists yet, or when a field is missing/invalid after load.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		SchemaVersion:    CurrentSchemaVersion,
		EnginePreference: EngineAuto,
		Volume:           80,
		Speed:            1.0,
		Theme:            "default",
		GlyphSet:         GlyphAuto,
		NetworkProfile:   NetworkStandard,
		StartOffline:     false,
		WrapAdvance:      true,
		Ui:               UiConfig{PlayerAtTop: false},
		ViewDefaults: ViewDefaults{
			SortBy:       SortByPubDate,
			SortDir:      SortDesc,
			UnplayedOnly: false,
		},
	}
}

// Normalize defaults and clamps every field, so a partially corrupt or
// hand-edited config file never produces an invalid in-memory value.
func (c *AppConfig) Normalize() {
	def := DefaultAppConfig()
	if c.SchemaVersion <= 0 {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if !ValidEnginePreference(c.EnginePreference) {
		c.EnginePreference = def.EnginePreference
	}
	c.Volume = ClampVolume(c.Volume)
	if c.Speed <= 0 {
		c.Speed = def.Speed
	}
	c.Speed = ClampSpeed(c.Speed, ConfigMinSpeed, ConfigMaxSpeed)
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if !ValidGlyphSet(c.GlyphSet) {
		c.GlyphSet = def.GlyphSet
	}
	if !ValidNetworkProfile(c.NetworkProfile) {
		c.NetworkProfile = def.NetworkProfile
	}
	if !ValidSortBy(c.ViewDefaults.SortBy) {
		c.ViewDefaults.SortBy = def.ViewDefaults.SortBy
	}
	switch c.ViewDefaults.SortDir {
	case SortAsc, SortDesc:
	default:
		c.ViewDefaults.SortDir = def.ViewDefaults.SortDir
	}
	if c.EffectiveEngine != "" && !ValidEnginePreference(c.EffectiveEngine) {
		c.EffectiveEngine = ""
	}
}
