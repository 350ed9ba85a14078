package store

import "time"

// Category selects which identity fields group and match chart entries.
type Category string

const (
	Songs    Category = "songs"
	Artists  Category = "artists"
	Albums   Category = "albums"
	Channels Category = "channels"
)

// AllCategories returns the categories in their fixed display order.
func AllCategories() []Category {
	return []Category{Songs, Artists, Albums, Channels}
}

// Period is a rolling chart window.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

func AllPeriods() []Period {
	return []Period{Daily, Weekly, Monthly, Yearly}
}

func (p Period) Window() time.Duration {
	switch p {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	case Yearly:
		return 365 * 24 * time.Hour
	}
	return 0
}

// RankedItem is one entry of a chart payload. Rank is positional: index 0 of
// a payload is rank 1, and snapshot diffing relies on that ordering. Change
// and NewEntry are computed per cycle and stripped before a payload is
// persisted.
type RankedItem struct {
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Album   string `json:"album,omitempty"`
	Channel string `json:"channel,omitempty"`

	// Plays is the play count; for albums Tracks holds the distinct-title
	// count instead.
	Plays  int64 `json:"plays,omitempty"`
	Tracks int64 `json:"tracks,omitempty"`

	Change   int  `json:"change,omitempty"`
	NewEntry bool `json:"new_entry,omitempty"`

	// Songs lists an album entry's distinct titles with their play counts,
	// most played first. Populated for album charts only.
	Songs []AlbumSong `json:"songs,omitempty"`
}

// AlbumSong is one title inside an album chart entry.
type AlbumSong struct {
	Title string `json:"title"`
	Plays int64  `json:"plays"`
}

// SameIdentity reports whether two entries are the same logical chart item
// for the given category. This is the one place the per-category identity
// contract lives; query grouping and snapshot diffing both follow it.
func (r RankedItem) SameIdentity(cat Category, o RankedItem) bool {
	switch cat {
	case Songs:
		return r.Title == o.Title && r.Artist == o.Artist && r.Album == o.Album
	case Artists:
		return r.Artist == o.Artist
	case Albums:
		return r.Artist == o.Artist && r.Album == o.Album
	case Channels:
		return r.Channel == o.Channel
	}
	return false
}

// PlayEvent is one row of the listening-history log.
type PlayEvent struct {
	Artist    string
	Title     string
	Album     string
	Channel   string
	Timestamp time.Time
}

// Stats summarizes a window of the history log.
type Stats struct {
	DistinctDays    int64
	DistinctSongs   int64
	TotalPlays      int64
	DistinctAlbums  int64
	DistinctArtists int64
}
