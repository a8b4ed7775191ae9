package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

// seatDocument は (day, index) ごとの1座席分のドキュメント
type seatDocument struct {
	Day      string `bson:"day"`
	Index    int    `bson:"index"`
	Reserved *bool  `bson:"reserved"`
}

// SeatRepository は1座席1ドキュメントで座席を保存する
// 置換は80件をまとめた1回の BulkWrite で行う。複数ドキュメントにまたがる原子性は
// BulkWrite の範囲でのベストエフォートであり、トランザクションは使わない
type SeatRepository struct {
	coll *mongo.Collection
}

func NewSeatRepository(coll *mongo.Collection) *SeatRepository {
	return &SeatRepository{coll: coll}
}

// EnsureIndexes は (day, index) の一意インデックスを作成する
func (r *SeatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "day", Value: 1}, {Key: "index", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("day_index_unique"),
	})
	if err != nil {
		return fmt.Errorf("インデックス作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) Load(ctx context.Context, day string) ([]seat.Seat, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"day": day}, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	defer func() { _ = cursor.Close(context.WithoutCancel(ctx)) }()

	docs, err := decodeSeats(ctx, cursor)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, seat.ErrInventoryNotFound
	}
	if len(docs) != seat.Capacity {
		return nil, fmt.Errorf("%w: %d席", seat.ErrInventoryCorrupted, len(docs))
	}
	seats := make([]seat.Seat, len(docs))
	for i, doc := range docs {
		if doc.Index != i || doc.Reserved == nil {
			return nil, fmt.Errorf("%w: 座席%dが不正です", seat.ErrInventoryCorrupted, i)
		}
		seats[i] = seat.Seat{Reserved: *doc.Reserved}
	}
	return seats, nil
}

type seatCursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
}

// decodeSeats はカーソルから座席ドキュメントを読み出す
// デコードできない文書だけを破損として扱い、通信やctxのエラーはそのまま返す
func decodeSeats(ctx context.Context, cursor seatCursor) ([]seatDocument, error) {
	var docs []seatDocument
	for cursor.Next(ctx) {
		var doc seatDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", seat.ErrInventoryCorrupted, err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return docs, nil
}

// CreateIfAbsent は $setOnInsert の upsert で既存の座席を変更せずに作成する
func (r *SeatRepository) CreateIfAbsent(ctx context.Context, day string, seats []seat.Seat) (bool, error) {
	models := make([]mongo.WriteModel, len(seats))
	for i, s := range seats {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"day": day, "index": i}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"reserved": s.Reserved}}).
			SetUpsert(true)
	}
	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		// 一意インデックス違反は同時の初期化に負けたことを意味する
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

// Replace は全座席の $set と範囲外ドキュメントの削除を1回の BulkWrite で送る
func (r *SeatRepository) Replace(ctx context.Context, day string, seats []seat.Seat) error {
	models := make([]mongo.WriteModel, 0, len(seats)+1)
	for i, s := range seats {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"day": day, "index": i}).
			SetUpdate(bson.M{"$set": bson.M{"reserved": s.Reserved}}).
			SetUpsert(true))
	}
	models = append(models, mongo.NewDeleteManyModel().
		SetFilter(bson.M{"day": day, "index": bson.M{"$gte": len(seats)}}))

	if _, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("座席一括更新に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
