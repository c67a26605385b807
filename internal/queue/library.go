package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"platter/internal/services"
)

const collectionColumns = "id, content_type, title, year, catalog_id, final_path, added_at"

// AddToCollection records a finished title in the library ledger.
func (s *Store) AddToCollection(ctx context.Context, item CollectionItem) (*CollectionItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "add to collection", "title is required", nil)
	}
	if strings.TrimSpace(item.FinalPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "add to collection", "final path is required", nil)
	}
	contentType := item.ContentType
	if contentType == "" {
		contentType = ContentTypeMovie
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO collection (content_type, title, year, catalog_id, final_path, added_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		contentType,
		strings.TrimSpace(item.Title),
		nullableInt(int64(item.Year)),
		nullableInt(item.CatalogID),
		item.FinalPath,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert collection item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.collectionItemByID(ctx, id)
}

// Collection returns the library ledger ordered by title.
func (s *Store) Collection(ctx context.Context) ([]*CollectionItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM collection ORDER BY title, year, id`)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	var items []*CollectionItem
	for rows.Next() {
		item, err := scanCollectionItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveFromCollection deletes a ledger row. The file on disk is untouched.
func (s *Store) RemoveFromCollection(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM collection WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete collection item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) collectionItemByID(ctx context.Context, id int64) (*CollectionItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collection WHERE id = ?`, id)
	item, err := scanCollectionItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection item: %w", err)
	}
	return item, nil
}

func scanCollectionItem(scanner interface{ Scan(dest ...any) error }) (*CollectionItem, error) {
	var (
		id          int64
		contentType sql.NullString
		title       string
		year        sql.NullInt64
		catalogID   sql.NullInt64
		finalPath   string
		addedRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &contentType, &title, &year, &catalogID, &finalPath, &addedRaw); err != nil {
		return nil, err
	}
	item := &CollectionItem{
		ID:          id,
		ContentType: ContentType(contentType.String),
		Title:       title,
		Year:        int(year.Int64),
		CatalogID:   catalogID.Int64,
		FinalPath:   finalPath,
	}
	if item.ContentType == "" {
		item.ContentType = ContentTypeMovie
	}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		item.AddedAt = added
	}
	return item, nil
}

const wantedColumns = "id, title, year, content_type, catalog_id, poster_ref, notes, added_at"

// AddToWanted records a title the user is watching for.
func (s *Store) AddToWanted(ctx context.Context, item WantedItem) (*WantedItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "add to wanted", "title is required", nil)
	}
	contentType := item.ContentType
	if contentType == "" {
		contentType = ContentTypeMovie
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO wanted (title, year, content_type, catalog_id, poster_ref, notes, added_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(item.Title),
		nullableInt(int64(item.Year)),
		contentType,
		nullableInt(item.CatalogID),
		nullableString(item.PosterRef),
		nullableString(item.Notes),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert wanted item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.wantedItemByID(ctx, id)
}

// Wanted returns the watch list, newest first.
func (s *Store) Wanted(ctx context.Context) ([]*WantedItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+wantedColumns+` FROM wanted ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list wanted: %w", err)
	}
	defer rows.Close()

	var items []*WantedItem
	for rows.Next() {
		item, err := scanWantedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveFromWanted deletes a watch-list row.
func (s *Store) RemoveFromWanted(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM wanted WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete wanted item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) wantedItemByID(ctx context.Context, id int64) (*WantedItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+wantedColumns+` FROM wanted WHERE id = ?`, id)
	item, err := scanWantedItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wanted item: %w", err)
	}
	return item, nil
}

func scanWantedItem(scanner interface{ Scan(dest ...any) error }) (*WantedItem, error) {
	var (
		id          int64
		title       string
		year        sql.NullInt64
		contentType sql.NullString
		catalogID   sql.NullInt64
		posterRef   sql.NullString
		notes       sql.NullString
		addedRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &title, &year, &contentType, &catalogID, &posterRef, &notes, &addedRaw); err != nil {
		return nil, err
	}
	item := &WantedItem{
		ID:          id,
		Title:       title,
		Year:        int(year.Int64),
		ContentType: ContentType(contentType.String),
		CatalogID:   catalogID.Int64,
		PosterRef:   posterRef.String,
		Notes:       notes.String,
	}
	if item.ContentType == "" {
		item.ContentType = ContentTypeMovie
	}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		item.AddedAt = added
	}
	return item, nil
}

const activeModeKey = "active_mode"

// Setting returns a settings value and whether the key exists.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, true, nil
}

// SetSetting stores a settings value, replacing any previous one.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, "queue", "set setting", "key is required", nil)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key,
		value,
	); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ActiveMode reports whether disc-detection notifications are enabled.
// Defaults to true when the setting has never been written.
func (s *Store) ActiveMode(ctx context.Context) (bool, error) {
	value, found, err := s.Setting(ctx, activeModeKey)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

// SetActiveMode persists the disc-watching toggle.
func (s *Store) SetActiveMode(ctx context.Context, enabled bool) error {
	return s.SetSetting(ctx, activeModeKey, strconv.FormatBool(enabled))
}
