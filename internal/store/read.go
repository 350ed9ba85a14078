package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// QueryTop aggregates plays within [now-window, now] into a ranked list for
// one category. Ordering is count descending with an alphabetical ascending
// tie-break on the identity columns, so repeated runs over identical data
// rank identically. minAlbumTracks is the distinct-title floor applied to
// album groups only.
func (s *Store) QueryTop(cat Category, now time.Time, window time.Duration, limit, minAlbumTracks int) ([]RankedItem, error) {
	start := now.Add(-window).Unix()
	end := now.Unix()

	var rows *sql.Rows
	var err error

	switch cat {
	case Songs:
		rows, err = s.db.Query(`
			SELECT title, artist, album, COUNT(*) AS plays
			FROM PlayEvent
			WHERE timestamp >= ? AND timestamp <= ?
			GROUP BY title, artist, album
			ORDER BY plays DESC, title ASC, artist ASC, album ASC
			LIMIT ?`, start, end, limit)

	case Artists:
		rows, err = s.db.Query(`
			SELECT artist, COUNT(*) AS plays
			FROM PlayEvent
			WHERE timestamp >= ? AND timestamp <= ?
			GROUP BY artist
			ORDER BY plays DESC, artist ASC
			LIMIT ?`, start, end, limit)

	case Albums:
		rows, err = s.db.Query(`
			SELECT artist, album, COUNT(DISTINCT title) AS tracks
			FROM PlayEvent
			WHERE timestamp >= ? AND timestamp <= ?
			GROUP BY artist, album
			HAVING tracks >= ?
			ORDER BY tracks DESC, artist ASC, album ASC
			LIMIT ?`, start, end, minAlbumTracks, limit)

	case Channels:
		rows, err = s.db.Query(`
			SELECT channel, COUNT(*) AS plays
			FROM PlayEvent
			WHERE timestamp >= ? AND timestamp <= ?
			AND channel IS NOT NULL AND channel != ''
			GROUP BY channel
			ORDER BY plays DESC, channel ASC
			LIMIT ?`, start, end, limit)

	default:
		return nil, fmt.Errorf("unknown category %q", cat)
	}
	if err != nil {
		return nil, fmt.Errorf("querying top %s: %w", cat, err)
	}
	defer rows.Close()

	var items []RankedItem
	for rows.Next() {
		var item RankedItem
		switch cat {
		case Songs:
			err = rows.Scan(&item.Title, &item.Artist, &item.Album, &item.Plays)
		case Artists:
			err = rows.Scan(&item.Artist, &item.Plays)
		case Albums:
			err = rows.Scan(&item.Artist, &item.Album, &item.Tracks)
		case Channels:
			err = rows.Scan(&item.Channel, &item.Plays)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning top %s: %w", cat, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cat == Albums {
		for i := range items {
			songs, err := s.AlbumSongs(items[i].Artist, items[i].Album, now, window)
			if err != nil {
				return nil, err
			}
			items[i].Songs = songs
		}
	}
	return items, nil
}

// AlbumSongs returns an album's distinct titles played within
// [now-window, now], most played first.
func (s *Store) AlbumSongs(artist, album string, now time.Time, window time.Duration) ([]AlbumSong, error) {
	rows, err := s.db.Query(`
		SELECT title, COUNT(*) AS plays
		FROM PlayEvent
		WHERE artist = ? AND album = ?
		AND timestamp >= ? AND timestamp <= ?
		GROUP BY title
		ORDER BY plays DESC, title ASC`,
		artist, album, now.Add(-window).Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying album songs: %w", err)
	}
	defer rows.Close()

	var songs []AlbumSong
	for rows.Next() {
		var song AlbumSong
		if err := rows.Scan(&song.Title, &song.Plays); err != nil {
			return nil, fmt.Errorf("scanning album song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// QueryPopularArtists ranks artists by how many distinct titles of theirs
// played within [now-window, now]. Unlike the category charts this list is
// not snapshotted or diffed; it is informational only.
func (s *Store) QueryPopularArtists(now time.Time, window time.Duration, limit int) ([]RankedItem, error) {
	rows, err := s.db.Query(`
		SELECT artist, COUNT(DISTINCT title) AS songs
		FROM PlayEvent
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY artist
		ORDER BY songs DESC, artist ASC
		LIMIT ?`, now.Add(-window).Unix(), now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying popular artists: %w", err)
	}
	defer rows.Close()

	var items []RankedItem
	for rows.Next() {
		var item RankedItem
		if err := rows.Scan(&item.Artist, &item.Tracks); err != nil {
			return nil, fmt.Errorf("scanning popular artist: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// WindowBounds returns the earliest and latest event timestamps within
// [now-window, now]. ok is false when the window holds no events.
func (s *Store) WindowBounds(now time.Time, window time.Duration) (start, end time.Time, ok bool, err error) {
	row := s.db.QueryRow(
		"SELECT MIN(timestamp), MAX(timestamp) FROM PlayEvent WHERE timestamp >= ? AND timestamp <= ?",
		now.Add(-window).Unix(), now.Unix())

	var min, max sql.NullInt64
	if err := row.Scan(&min, &max); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("querying window bounds: %w", err)
	}
	if !min.Valid || !max.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return time.Unix(min.Int64, 0), time.Unix(max.Int64, 0), true, nil
}

// OverviewStats summarizes the history log within [now-window, now].
func (s *Store) OverviewStats(now time.Time, window time.Duration) (Stats, error) {
	var stats Stats
	row := s.db.QueryRow(`
		SELECT
			COUNT(DISTINCT date(timestamp, 'unixepoch')),
			COUNT(DISTINCT title || '|' || artist),
			COUNT(*),
			COUNT(DISTINCT artist || '|' || album),
			COUNT(DISTINCT artist)
		FROM PlayEvent
		WHERE timestamp >= ? AND timestamp <= ?`,
		now.Add(-window).Unix(), now.Unix())
	err := row.Scan(&stats.DistinctDays, &stats.DistinctSongs, &stats.TotalPlays,
		&stats.DistinctAlbums, &stats.DistinctArtists)
	if err != nil {
		return Stats{}, fmt.Errorf("querying overview stats: %w", err)
	}
	return stats, nil
}

// LoadComparableSnapshot returns the newest snapshot from the preceding,
// non-overlapping window of the same length: for window w, the one whose
// timestamp falls in [now-2w, now-w). A snapshot saved moments ago never
// qualifies, so a week is not compared against itself as it accretes days.
// Returns nil when no comparable snapshot exists.
func (s *Store) LoadComparableSnapshot(cat Category, period Period, now time.Time) ([]RankedItem, error) {
	w := period.Window()
	row := s.db.QueryRow(`
		SELECT payload FROM ChartSnapshot
		WHERE category = ? AND period = ?
		AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1`,
		string(cat), string(period), now.Add(-2*w).Unix(), now.Add(-w).Unix())

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var items []RankedItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return items, nil
}

// RecentPlays returns the latest plays, newest first.
func (s *Store) RecentPlays(limit int) ([]PlayEvent, error) {
	rows, err := s.db.Query(`
		SELECT artist, title, album, channel, timestamp
		FROM PlayEvent
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent plays: %w", err)
	}
	defer rows.Close()

	var plays []PlayEvent
	for rows.Next() {
		var p PlayEvent
		var channel sql.NullString
		var ts int64
		if err := rows.Scan(&p.Artist, &p.Title, &p.Album, &channel, &ts); err != nil {
			return nil, fmt.Errorf("scanning recent play: %w", err)
		}
		p.Channel = channel.String
		p.Timestamp = time.Unix(ts, 0)
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
