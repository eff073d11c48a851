package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// plantSelect returns every plant column plus the derived last_watered date.
const plantSelect = `SELECT p.id, p.user_id, p.name, p.alias, p.price, p.delivery_fee,
       p.purchased_from, p.purchased_when, p.received_when, p.purchase_notes,
       p.status, p.profile_photo, p.created_at, p.updated_at,
       (SELECT MAX(e.event_date) FROM plant_events e
         WHERE e.plant_id = p.id AND e.event_type = 'Water') AS last_watered
  FROM plants p`

// sortColumns maps a sort key to its ORDER BY expression.
var sortColumns = map[types.PlantSort]string{
	types.SortName:          "p.name COLLATE NOCASE",
	types.SortPurchasedWhen: "p.purchased_when",
	types.SortReceivedWhen:  "p.received_when",
	types.SortLastWatered:   "last_watered",
}

type plantTable struct {
	b *Backend
}

func scanPlant(row interface{ Scan(...any) error }) (*types.Plant, error) {
	var (
		p                                       types.Plant
		alias, from, purchased, received, notes sql.NullString
		profile, lastWatered                    sql.NullString
		price, fee                              sql.NullFloat64
		status, createdAt, updatedAt            string
		err                                     error
	)
	if err = row.Scan(&p.ID, &p.UserID, &p.Name, &alias, &price, &fee,
		&from, &purchased, &received, &notes,
		&status, &profile, &createdAt, &updatedAt, &lastWatered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning plant: %w", err)
	}
	p.Alias = stringPtr(alias)
	p.Price = floatPtr(price)
	p.DeliveryFee = floatPtr(fee)
	p.PurchasedFrom = stringPtr(from)
	p.PurchasedWhen = stringPtr(purchased)
	p.ReceivedWhen = stringPtr(received)
	p.PurchaseNotes = stringPtr(notes)
	p.Status = types.PlantStatus(status)
	p.ProfilePhoto = stringPtr(profile)
	p.LastWatered = stringPtr(lastWatered)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPlants(rows *sql.Rows) ([]*types.Plant, error) {
	defer rows.Close()
	plants := []*types.Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// likePattern escapes LIKE wildcards in s and wraps it for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func (t *plantTable) List(ctx context.Context, userID int64, filter types.PlantFilter) ([]*types.Plant, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}

	var (
		where = []string{"p.user_id = ?"}
		args  = []any{userID}
	)
	if filter.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PurchasedFrom != "" {
		where = append(where, "p.purchased_from = ?")
		args = append(args, filter.PurchasedFrom)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where,
			`(lower(p.name) LIKE ? ESCAPE '\' OR lower(ifnull(p.alias, '')) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(q), likePattern(q))
	}

	col := sortColumns[filter.Sort]
	dir := "ASC"
	if filter.Order == types.OrderDesc {
		dir = "DESC"
	}
	// Rows without a value sort last in either direction.
	query := fmt.Sprintf("%s WHERE %s ORDER BY %s IS NULL, %s %s, p.id",
		plantSelect, strings.Join(where, " AND "), col, col, dir)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	return collectPlants(rows)
}

func (t *plantTable) Get(ctx context.Context, userID, id int64) (*types.Plant, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanPlant(db.QueryRowContext(ctx,
		plantSelect+" WHERE p.id = ? AND p.user_id = ?", id, userID))
}

func (t *plantTable) FindByName(ctx context.Context, userID int64, name string) (*types.Plant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanPlant(db.QueryRowContext(ctx,
		plantSelect+" WHERE p.user_id = ? AND lower(p.name) = lower(?) ORDER BY p.id LIMIT 1",
		userID, name))
}

func (t *plantTable) Create(ctx context.Context, userID int64, p *types.Plant) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO plants (user_id, name, alias, price, delivery_fee, purchased_from,
		                    purchased_when, received_when, purchase_notes, status,
		                    profile_photo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, p.Name, nullString(p.Alias), nullFloat(p.Price), nullFloat(p.DeliveryFee),
		nullString(p.PurchasedFrom), nullString(p.PurchasedWhen), nullString(p.ReceivedWhen),
		nullString(p.PurchaseNotes), string(p.Status), nullString(p.ProfilePhoto),
		formatTime(ts), formatTime(ts))
	if err != nil {
		return 0, fmt.Errorf("inserting plant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading plant id: %w", err)
	}
	p.ID, p.UserID, p.CreatedAt, p.UpdatedAt = id, userID, ts, ts
	return id, nil
}

func (t *plantTable) Update(ctx context.Context, userID int64, p *types.Plant) error {
	if p.ID <= 0 {
		return types.ErrInvalidID
	}
	if err := p.Validate(); err != nil {
		return err
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
		UPDATE plants SET name = ?, alias = ?, price = ?, delivery_fee = ?, purchased_from = ?,
		       purchased_when = ?, received_when = ?, purchase_notes = ?, status = ?,
		       profile_photo = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Name, nullString(p.Alias), nullFloat(p.Price), nullFloat(p.DeliveryFee),
		nullString(p.PurchasedFrom), nullString(p.PurchasedWhen), nullString(p.ReceivedWhen),
		nullString(p.PurchaseNotes), string(p.Status), nullString(p.ProfilePhoto),
		formatTime(ts), p.ID, userID)
	if err != nil {
		return fmt.Errorf("updating plant: %w", err)
	}
	if err := affected(res); err != nil {
		return err
	}
	p.UserID, p.UpdatedAt = userID, ts
	return nil
}

func (t *plantTable) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM plants WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting plant: %w", err)
	}
	return affected(res)
}

func (t *plantTable) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM plants WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("deleting plants: %w", err)
	}
	return res.RowsAffected()
}

func (t *plantTable) All(ctx context.Context) ([]*types.Plant, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, plantSelect+" ORDER BY p.id")
	if err != nil {
		return nil, fmt.Errorf("listing all plants: %w", err)
	}
	return collectPlants(rows)
}

func (t *plantTable) SetProfilePhoto(ctx context.Context, id int64, path string) error {
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	var value any
	if path != "" {
		value = path
	}
	res, err := db.ExecContext(ctx,
		"UPDATE plants SET profile_photo = ?, updated_at = ? WHERE id = ?",
		value, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("setting profile photo: %w", err)
	}
	return affected(res)
}
