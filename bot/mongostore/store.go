// Package mongostore keeps subscriber sets in MongoDB, one document per
// (server, game) bucket:
//
//	{server_id, game, subscribers: [user ids], created_at, updated_at}
//
// Set membership is changed with $addToSet and $pull so concurrent
// subscribe/unsubscribe calls on one bucket never lose updates.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/liuran001/LFGBot-Go/bot"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "lfg_subscriptions"

// bucket is the stored shape of one (server, game) subscriber set.
type bucket struct {
	ServerID    string    `bson:"server_id"`
	Game        string    `bson:"game"`
	Subscribers []string  `bson:"subscribers"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type Store struct {
	c      *mongo.Collection
	client *mongo.Client // set when the store owns the connection
}

var (
	_ bot.SubscriptionStore    = (*Store)(nil)
	_ bot.SubscriptionExporter = (*Store)(nil)
	_ bot.Pinger               = (*Store)(nil)
)

// New returns a store on the named collection of db. Writes use majority,
// journaled acknowledgement.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	journal := true
	wc := writeconcern.Majority()
	wc.Journal = &journal
	return &Store{
		c: db.Collection(collection, options.Collection().SetWriteConcern(wc)),
	}
}

// Connect dials uri, verifies the primary answers, ensures indexes and
// returns a store that disconnects the client on Close.
func Connect(ctx context.Context, uri, database, collection string, sink options.LogSink) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri required")
	}
	if database == "" {
		return nil, errors.New("mongo database required")
	}

	clientOpts := options.Client().ApplyURI(uri)
	if sink != nil {
		clientOpts.SetLoggerOptions(options.Logger().
			SetSink(sink).
			SetComponentLevel(options.LogComponentConnection, options.LogLevelInfo).
			SetComponentLevel(options.LogComponentServerSelection, options.LogLevelInfo))
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client.Database(database), collection)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

// EnsureIndexes creates the bucket key and membership indexes. It is
// idempotent and safe to call at every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "server_id", Value: 1}, {Key: "game", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_server_game"),
		},
		{
			Keys:    bson.D{{Key: "server_id", Value: 1}, {Key: "subscribers", Value: 1}},
			Options: options.Index().SetName("idx_server_subscribers"),
		},
	})
	return err
}

// Ping checks that the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.c.Database().Client().Ping(ctx, readpref.Primary())
}

// Subscribe adds userID to the bucket, creating the bucket if needed.
func (s *Store) Subscribe(ctx context.Context, serverID, game, userID string) error {
	now := time.Now().UTC()
	filter := bson.M{"server_id": serverID, "game": game}
	update := bson.M{
		"$addToSet":    bson.M{"subscribers": userID},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced to create the bucket; the loser retries as a
		// plain update against the winner's document.
		_, err = s.c.UpdateOne(ctx, filter, update, opts)
	}
	return err
}

// Unsubscribe pulls userID from the bucket. The bucket document stays
// behind when it empties and is hidden from listings.
func (s *Store) Unsubscribe(ctx context.Context, serverID, game, userID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"server_id": serverID, "game": game, "subscribers": userID},
		bson.M{
			"$pull": bson.M{"subscribers": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// ListSubscriptionsForUser returns the games userID follows in serverID.
func (s *Store) ListSubscriptionsForUser(ctx context.Context, serverID, userID string) ([]string, error) {
	return s.games(ctx, bson.M{"server_id": serverID, "subscribers": userID})
}

// ListSubscribers returns the subscriber set of the bucket; missing buckets
// yield an empty set.
func (s *Store) ListSubscribers(ctx context.Context, serverID, game string) ([]string, error) {
	var b bucket
	err := s.c.FindOne(ctx, bson.M{"server_id": serverID, "game": game}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	users := append([]string{}, b.Subscribers...)
	sort.Strings(users)
	return users, nil
}

// ListActiveGames returns the games of serverID whose set is non-empty.
func (s *Store) ListActiveGames(ctx context.Context, serverID string) ([]string, error) {
	return s.games(ctx, activeFilter(serverID))
}

// CountActiveGames returns active games with subscriber counts, most
// popular first.
func (s *Store) CountActiveGames(ctx context.Context, serverID string) ([]bot.GameCount, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: activeFilter(serverID)}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"game":        1,
			"subscribers": bson.M{"$size": "$subscribers"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "subscribers", Value: -1}, {Key: "game", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Game        string `bson:"game"`
		Subscribers int    `bson:"subscribers"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	result := make([]bot.GameCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, bot.GameCount{Game: row.Game, Subscribers: row.Subscribers})
	}
	return result, nil
}

// Subscriptions unrolls the active buckets of serverID into one record per
// member, ordered by game and then user. Buckets keep no per-member time,
// so every record carries its bucket's creation time.
func (s *Store) Subscriptions(ctx context.Context, serverID string) ([]*bot.Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "game", Value: 1}})
	cur, err := s.c.Find(ctx, activeFilter(serverID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var buckets []bucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return flatten(buckets), nil
}

func flatten(buckets []bucket) []*bot.Subscription {
	result := make([]*bot.Subscription, 0, len(buckets))
	for _, b := range buckets {
		users := append([]string{}, b.Subscribers...)
		sort.Strings(users)
		for _, u := range users {
			result = append(result, &bot.Subscription{
				ServerID:  b.ServerID,
				Game:      b.Game,
				UserID:    u,
				CreatedAt: b.CreatedAt,
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Game < result[j].Game })
	return result
}

// Close disconnects the client if the store created it.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) games(ctx context.Context, filter bson.M) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "game": 1}).
		SetSort(bson.D{{Key: "game", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	games := make([]string, 0)
	for cur.Next(ctx) {
		var row struct {
			Game string `bson:"game"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		games = append(games, row.Game)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

func activeFilter(serverID string) bson.M {
	return bson.M{"server_id": serverID, "subscribers.0": bson.M{"$exists": true}}
}
