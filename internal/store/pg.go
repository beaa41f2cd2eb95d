package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
	// replicated is set when reads are routed to replicas by dbresolver
	replicated bool
}

// NewPGStore creates a new PostgreSQL store instance.
// The connection should be opened with gorm.Config{TranslateError: true} so that
// unique violations surface as domain.ErrConflict.
func NewPGStore(db *gorm.DB) Store {
	_, replicated := db.Config.Plugins[(&dbresolver.DBResolver{}).Name()]
	return &pgStore{db: db, replicated: replicated}
}

// RegisterReplicas routes reads to the given replica DSNs. Writes, and reads
// with Clauses(dbresolver.Write), stay on the primary. The replica pools use
// the same settings as the primary pool.
func RegisterReplicas(db *gorm.DB, dsns []string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	if len(dsns) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, 0, len(dsns))
	for _, dsn := range dsns {
		replicas = append(replicas, postgres.Open(dsn))
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}).
		SetMaxOpenConns(maxOpenConns).
		SetMaxIdleConns(maxIdleConns).
		SetConnMaxLifetime(connMaxLifetime).
		SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.Use(resolver); err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}
	return nil
}

// firstByID loads the row with the given id into dest and reports whether it exists
func (s *pgStore) firstByID(ctx context.Context, dest interface{}, id string) (bool, error) {
	err := s.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && s.replicated {
		// Replica can lag behind primary; retry on primary before returning not found.
		err = s.db.WithContext(ctx).Clauses(dbresolver.Write).Where("id = ?", id).First(dest).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Migrate creates or updates the marketplace tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&schema.User{},
		&schema.Stamp{},
		&schema.Ownership{},
		&schema.Pricing{},
		&schema.Insight{},
		&schema.Collection{},
		&schema.CollectionItem{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	// Set defaults if not provided
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// =============================================================================
// Users
// =============================================================================

// CreateUser inserts a user
func (s *pgStore) CreateUser(ctx context.Context, user *schema.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapError("create user", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (s *pgStore) GetUserByID(ctx context.Context, id string) (*schema.User, error) {
	var user schema.User
	found, err := s.firstByID(ctx, &user, id)
	if err != nil {
		return nil, wrapError("get user", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// GetUsersByIDs retrieves users keyed by ID
func (s *pgStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*schema.User, error) {
	result := make(map[string]*schema.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []schema.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrapError("get users by IDs", err)
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

// =============================================================================
// Stamps
// =============================================================================

// CreateStamp inserts a stamp
func (s *pgStore) CreateStamp(ctx context.Context, stamp *schema.Stamp) error {
	if err := s.db.WithContext(ctx).Create(stamp).Error; err != nil {
		return wrapError("create stamp", err)
	}
	return nil
}

// GetStampByID retrieves a stamp by ID
func (s *pgStore) GetStampByID(ctx context.Context, id string) (*schema.Stamp, error) {
	var stamp schema.Stamp
	found, err := s.firstByID(ctx, &stamp, id)
	if err != nil {
		return nil, wrapError("get stamp", err)
	}
	if !found {
		return nil, nil
	}
	return &stamp, nil
}

// stampQuery joins each stamp with its insight, current owner and current price so
// that derived fields can be filtered and sorted on
func (s *pgStore) stampQuery(ctx context.Context, filter *query.Filter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).
		Model(&schema.Stamp{}).
		Joins(joinInsights).
		Joins(joinCurrentOwner).
		Joins(joinCurrentPrice)
	return applyFilter(q, stampColumns, filter)
}

// FindStamps retrieves one window of stamps matching filter
func (s *pgStore) FindStamps(ctx context.Context, filter *query.Filter, sort query.Sort, window query.Window) ([]schema.Stamp, error) {
	q, err := s.stampQuery(ctx, filter)
	if err != nil {
		return nil, wrapError("find stamps", err)
	}
	order, err := orderClause(stampColumns, sort)
	if err != nil {
		return nil, wrapError("find stamps", err)
	}

	var stamps []schema.Stamp
	err = q.Select("stamps.*").
		Order(order).
		Limit(window.Limit).
		Offset(window.Skip).
		Find(&stamps).Error
	if err != nil {
		return nil, wrapError("find stamps", err)
	}
	return stamps, nil
}

// CountStamps counts the stamps matching filter
func (s *pgStore) CountStamps(ctx context.Context, filter *query.Filter) (int64, error) {
	q, err := s.stampQuery(ctx, filter)
	if err != nil {
		return 0, wrapError("count stamps", err)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, wrapError("count stamps", err)
	}
	return total, nil
}

// UpdateStampToken updates the token and media references of a stamp
func (s *pgStore) UpdateStampToken(ctx context.Context, id string, update StampTokenUpdate, at time.Time) (bool, error) {
	updates := map[string]interface{}{"updated_at": at}
	if update.TokenID != nil {
		updates["token_id"] = *update.TokenID
	}
	if update.ImageURL != nil {
		updates["image_url"] = *update.ImageURL
	}

	result := s.db.WithContext(ctx).
		Model(&schema.Stamp{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return false, wrapError("update stamp token", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteStamp deletes a stamp record
func (s *pgStore) DeleteStamp(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.Stamp{}).Error; err != nil {
		return wrapError("delete stamp", err)
	}
	return nil
}

// =============================================================================
// Ownership and pricing logs
// =============================================================================

// AppendOwnership appends an ownership log entry
func (s *pgStore) AppendOwnership(ctx context.Context, entry *schema.Ownership) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return wrapError("append ownership", err)
	}
	return nil
}

// GetOwnerships retrieves the ownership log of a stamp, newest first
func (s *pgStore) GetOwnerships(ctx context.Context, stampID string) ([]schema.Ownership, error) {
	var entries []schema.Ownership
	err := s.db.WithContext(ctx).
		Where("stamp_id = ?", stampID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrapError("get ownerships", err)
	}
	return entries, nil
}

// GetLatestOwnerships retrieves the current ownership entry of each stamp using DISTINCT ON
func (s *pgStore) GetLatestOwnerships(ctx context.Context, stampIDs []string) ([]schema.Ownership, error) {
	if len(stampIDs) == 0 {
		return []schema.Ownership{}, nil
	}

	var entries []schema.Ownership
	err := s.db.WithContext(ctx).
		Model(&schema.Ownership{}).
		Select("DISTINCT ON (stamp_id) *").
		Where("stamp_id IN ?", stampIDs).
		Order("stamp_id, created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrapError("get latest ownerships", err)
	}
	return entries, nil
}

// DeleteOwnerships deletes the ownership log of a stamp
func (s *pgStore) DeleteOwnerships(ctx context.Context, stampID string) error {
	if err := s.db.WithContext(ctx).Where("stamp_id = ?", stampID).Delete(&schema.Ownership{}).Error; err != nil {
		return wrapError("delete ownerships", err)
	}
	return nil
}

// AppendPricing appends a pricing log entry
func (s *pgStore) AppendPricing(ctx context.Context, entry *schema.Pricing) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return wrapError("append pricing", err)
	}
	return nil
}

// GetPricings retrieves the pricing log of a stamp, newest first
func (s *pgStore) GetPricings(ctx context.Context, stampID string) ([]schema.Pricing, error) {
	var entries []schema.Pricing
	err := s.db.WithContext(ctx).
		Where("stamp_id = ?", stampID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrapError("get pricings", err)
	}
	return entries, nil
}

// GetLatestPricings retrieves the current pricing entry of each stamp using DISTINCT ON
func (s *pgStore) GetLatestPricings(ctx context.Context, stampIDs []string) ([]schema.Pricing, error) {
	if len(stampIDs) == 0 {
		return []schema.Pricing{}, nil
	}

	var entries []schema.Pricing
	err := s.db.WithContext(ctx).
		Model(&schema.Pricing{}).
		Select("DISTINCT ON (stamp_id) *").
		Where("stamp_id IN ?", stampIDs).
		Order("stamp_id, created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrapError("get latest pricings", err)
	}
	return entries, nil
}

// DeletePricings deletes the pricing log of a stamp
func (s *pgStore) DeletePricings(ctx context.Context, stampID string) error {
	if err := s.db.WithContext(ctx).Where("stamp_id = ?", stampID).Delete(&schema.Pricing{}).Error; err != nil {
		return wrapError("delete pricings", err)
	}
	return nil
}

// =============================================================================
// Insights
// =============================================================================

// GetInsightsByStampIDs retrieves insights keyed by stamp ID
func (s *pgStore) GetInsightsByStampIDs(ctx context.Context, stampIDs []string) (map[string]*schema.Insight, error) {
	result := make(map[string]*schema.Insight, len(stampIDs))
	if len(stampIDs) == 0 {
		return result, nil
	}

	var insights []schema.Insight
	if err := s.db.WithContext(ctx).Where("stamp_id IN ?", stampIDs).Find(&insights).Error; err != nil {
		return nil, wrapError("get insights", err)
	}
	for i := range insights {
		result[insights[i].StampID] = &insights[i]
	}
	return result, nil
}

// IncrementInsightCounter upserts the insight and adds delta to the counter in one statement
func (s *pgStore) IncrementInsightCounter(ctx context.Context, stampID string, metric domain.Metric, delta int64, at time.Time) error {
	col, err := metricColumn(metric)
	if err != nil {
		return wrapError("increment insight counter", err)
	}

	insight := schema.Insight{
		StampID:      stampID,
		VerifyStatus: string(domain.VerifyStatusUnverified),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	switch metric {
	case domain.MetricViewCount:
		insight.ViewCount = delta
	case domain.MetricFavouriteCount:
		insight.FavouriteCount = delta
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stamp_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			col:          gorm.Expr("insights."+col+" + ?", delta),
			"updated_at": at,
		}),
	}).Create(&insight).Error
	if err != nil {
		return wrapError("increment insight counter", err)
	}
	return nil
}

// UpdateInsight upserts curation state of an insight
func (s *pgStore) UpdateInsight(ctx context.Context, stampID string, update InsightUpdate, at time.Time) error {
	insight := schema.Insight{
		StampID:      stampID,
		VerifyStatus: string(domain.VerifyStatusUnverified),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	assignments := map[string]interface{}{"updated_at": at}
	if update.VerifyStatus != nil {
		insight.VerifyStatus = string(*update.VerifyStatus)
		assignments["verify_status"] = string(*update.VerifyStatus)
	}
	if update.IsListed != nil {
		insight.IsListed = *update.IsListed
		assignments["is_listed"] = *update.IsListed
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stamp_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&insight).Error
	if err != nil {
		return wrapError("update insight", err)
	}
	return nil
}

// ResetInsightCounters zeroes both counters of an existing insight
func (s *pgStore) ResetInsightCounters(ctx context.Context, stampID string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Insight{}).
		Where("stamp_id = ?", stampID).
		Updates(map[string]interface{}{
			"view_count":      0,
			"favourite_count": 0,
			"updated_at":      at,
		}).Error
	if err != nil {
		return wrapError("reset insight counters", err)
	}
	return nil
}

// DeleteInsight deletes the insight of a stamp
func (s *pgStore) DeleteInsight(ctx context.Context, stampID string) error {
	if err := s.db.WithContext(ctx).Where("stamp_id = ?", stampID).Delete(&schema.Insight{}).Error; err != nil {
		return wrapError("delete insight", err)
	}
	return nil
}

// rankedStampRow is a stamp row joined with its insight columns
type rankedStampRow struct {
	schema.Stamp
	InsightVerifyStatus   string    `gorm:"column:insight_verify_status"`
	InsightViewCount      int64     `gorm:"column:insight_view_count"`
	InsightFavouriteCount int64     `gorm:"column:insight_favourite_count"`
	InsightIsListed       bool      `gorm:"column:insight_is_listed"`
	InsightCreatedAt      time.Time `gorm:"column:insight_created_at"`
	InsightUpdatedAt      time.Time `gorm:"column:insight_updated_at"`
}

// RankStamps orders insight-bearing stamps by metric in a single query,
// sorting before truncating
func (s *pgStore) RankStamps(ctx context.Context, metric domain.Metric, limit int) ([]RankedStamp, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return nil, wrapError("rank stamps", err)
	}

	var rows []rankedStampRow
	err = s.db.WithContext(ctx).
		Table("stamps").
		Select(`stamps.*,
			insights.verify_status AS insight_verify_status,
			insights.view_count AS insight_view_count,
			insights.favourite_count AS insight_favourite_count,
			insights.is_listed AS insight_is_listed,
			insights.created_at AS insight_created_at,
			insights.updated_at AS insight_updated_at`).
		Joins("JOIN insights ON insights.stamp_id = stamps.id").
		Order(fmt.Sprintf("insights.%s DESC, stamps.created_at ASC, stamps.id ASC", col)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapError("rank stamps", err)
	}

	ranked := make([]RankedStamp, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, RankedStamp{
			Stamp: row.Stamp,
			Insight: schema.Insight{
				StampID:        row.Stamp.ID,
				VerifyStatus:   row.InsightVerifyStatus,
				ViewCount:      row.InsightViewCount,
				FavouriteCount: row.InsightFavouriteCount,
				IsListed:       row.InsightIsListed,
				CreatedAt:      row.InsightCreatedAt,
				UpdatedAt:      row.InsightUpdatedAt,
			},
		})
	}

	logger.DebugCtx(ctx, "Ranked stamps", zap.String("metric", col), zap.Int("count", len(ranked)))

	return ranked, nil
}

// =============================================================================
// Collections
// =============================================================================

// CreateCollection inserts a collection
func (s *pgStore) CreateCollection(ctx context.Context, collection *schema.Collection) error {
	if err := s.db.WithContext(ctx).Create(collection).Error; err != nil {
		return wrapError("create collection", err)
	}
	return nil
}

// GetCollectionByID retrieves a collection by ID
func (s *pgStore) GetCollectionByID(ctx context.Context, id string) (*schema.Collection, error) {
	var collection schema.Collection
	found, err := s.firstByID(ctx, &collection, id)
	if err != nil {
		return nil, wrapError("get collection", err)
	}
	if !found {
		return nil, nil
	}
	return &collection, nil
}

// GetCollectionsByIDs retrieves collections keyed by ID
func (s *pgStore) GetCollectionsByIDs(ctx context.Context, ids []string) (map[string]*schema.Collection, error) {
	result := make(map[string]*schema.Collection, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var collections []schema.Collection
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&collections).Error; err != nil {
		return nil, wrapError("get collections by IDs", err)
	}
	for i := range collections {
		result[collections[i].ID] = &collections[i]
	}
	return result, nil
}

// FindCollections retrieves one window of collections matching filter
func (s *pgStore) FindCollections(ctx context.Context, filter *query.Filter, sort query.Sort, window query.Window) ([]schema.Collection, error) {
	q, err := applyFilter(s.db.WithContext(ctx).Model(&schema.Collection{}), collectionColumns, filter)
	if err != nil {
		return nil, wrapError("find collections", err)
	}
	order, err := orderClause(collectionColumns, sort)
	if err != nil {
		return nil, wrapError("find collections", err)
	}

	var collections []schema.Collection
	err = q.Order(order).
		Limit(window.Limit).
		Offset(window.Skip).
		Find(&collections).Error
	if err != nil {
		return nil, wrapError("find collections", err)
	}
	return collections, nil
}

// CountCollections counts the collections matching filter
func (s *pgStore) CountCollections(ctx context.Context, filter *query.Filter) (int64, error) {
	q, err := applyFilter(s.db.WithContext(ctx).Model(&schema.Collection{}), collectionColumns, filter)
	if err != nil {
		return 0, wrapError("count collections", err)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, wrapError("count collections", err)
	}
	return total, nil
}

// IncrementCollectionCounter adds delta to a collection counter in one statement
func (s *pgStore) IncrementCollectionCounter(ctx context.Context, id string, metric domain.Metric, delta int64) (bool, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return false, wrapError("increment collection counter", err)
	}

	result := s.db.WithContext(ctx).
		Model(&schema.Collection{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if result.Error != nil {
		return false, wrapError("increment collection counter", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RankCollections orders collections by metric then creation order
func (s *pgStore) RankCollections(ctx context.Context, metric domain.Metric, limit int) ([]schema.Collection, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return nil, wrapError("rank collections", err)
	}

	var collections []schema.Collection
	err = s.db.WithContext(ctx).
		Order(fmt.Sprintf("%s DESC, created_at ASC, id ASC", col)).
		Limit(limit).
		Find(&collections).Error
	if err != nil {
		return nil, wrapError("rank collections", err)
	}
	return collections, nil
}

// =============================================================================
// Collection membership
// =============================================================================

// AddCollectionItem inserts a membership row, ignoring duplicates
func (s *pgStore) AddCollectionItem(ctx context.Context, item *schema.CollectionItem) (bool, error) {
	// Use ON CONFLICT DO NOTHING on the (collection_id, stamp_id) unique index
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_id"}, {Name: "stamp_id"}},
		DoNothing: true,
	}).Create(item)
	if result.Error != nil {
		return false, wrapError("add collection item", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveCollectionItem deletes a membership row
func (s *pgStore) RemoveCollectionItem(ctx context.Context, collectionID, stampID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("collection_id = ? AND stamp_id = ?", collectionID, stampID).
		Delete(&schema.CollectionItem{})
	if result.Error != nil {
		return false, wrapError("remove collection item", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveStampFromCollections deletes every membership row of a stamp
func (s *pgStore) RemoveStampFromCollections(ctx context.Context, stampID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("stamp_id = ?", stampID).
		Delete(&schema.CollectionItem{})
	if result.Error != nil {
		return 0, wrapError("remove stamp from collections", result.Error)
	}
	return result.RowsAffected, nil
}

// GetCollectionItems retrieves the items of a collection in insertion order
func (s *pgStore) GetCollectionItems(ctx context.Context, collectionID string) ([]schema.CollectionItem, error) {
	var items []schema.CollectionItem
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, wrapError("get collection items", err)
	}
	return items, nil
}

// GetCollectionItemsByStampIDs retrieves the memberships of the given stamps in insertion order
func (s *pgStore) GetCollectionItemsByStampIDs(ctx context.Context, stampIDs []string) ([]schema.CollectionItem, error) {
	if len(stampIDs) == 0 {
		return []schema.CollectionItem{}, nil
	}

	var items []schema.CollectionItem
	err := s.db.WithContext(ctx).
		Where("stamp_id IN ?", stampIDs).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, wrapError("get collection items by stamp IDs", err)
	}
	return items, nil
}

// CountCollectionItems counts the items of each collection
func (s *pgStore) CountCollectionItems(ctx context.Context, collectionIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(collectionIDs))
	if len(collectionIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		CollectionID string
		Count        int64
	}
	err := s.db.WithContext(ctx).
		Model(&schema.CollectionItem{}).
		Select("collection_id, COUNT(*) AS count").
		Where("collection_id IN ?", collectionIDs).
		Group("collection_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapError("count collection items", err)
	}
	for _, row := range rows {
		result[row.CollectionID] = row.Count
	}
	return result, nil
}
