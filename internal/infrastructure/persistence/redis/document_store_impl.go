package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/pkg/constants"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// errGenerationMismatch signals a concurrent writer inside a Watch
// callback; translated to a conflict error at the boundary.
var errGenerationMismatch = errors.New("generation mismatch")

// DocumentStoreImpl implements DocumentStore on go-redis.
type DocumentStoreImpl struct {
	client redis.UniversalClient
	log    logger.Logger
}

// NewDocumentStore creates a Redis-backed document store.
func NewDocumentStore(client redis.UniversalClient, log logger.Logger) repository.DocumentStore {
	return &DocumentStoreImpl{client: client, log: log}
}

// key builds a member of the document's key family: tm:{id}:{suffix}.
func key(modelID, suffix string) string {
	return fmt.Sprintf("tm:%s:%s", modelID, suffix)
}

func (s *DocumentStoreImpl) Get(ctx context.Context, k string) (string, error) {
	val, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.ErrNotFound("key", k)
		}
		return "", apperrors.ErrBackend("document store read failed", err)
	}
	return val, nil
}

func (s *DocumentStoreImpl) Set(ctx context.Context, k, value string) error {
	if err := s.client.Set(ctx, k, value, 0).Err(); err != nil {
		return apperrors.ErrBackend("document store write failed", err)
	}
	return nil
}

func (s *DocumentStoreImpl) Exists(ctx context.Context, modelID string) (bool, error) {
	count, err := s.client.Exists(ctx,
		key(modelID, constants.DocumentKeyTitle),
		key(modelID, constants.DocumentKeyContent),
	).Result()
	if err != nil {
		return false, apperrors.ErrBackend("document existence check failed", err)
	}
	// Both required keys must be present.
	return count == 2, nil
}

func (s *DocumentStoreImpl) GetDocument(ctx context.Context, modelID string) (*models.ThreatModelDocument, error) {
	vals, err := s.client.MGet(ctx,
		key(modelID, constants.DocumentKeyTitle),
		key(modelID, constants.DocumentKeyContent),
		key(modelID, constants.DocumentKeyThreatCount),
		key(modelID, constants.DocumentKeyGeneration),
	).Result()
	if err != nil {
		return nil, apperrors.ErrBackend("failed to load document", err)
	}

	title, titleOK := vals[0].(string)
	content, contentOK := vals[1].(string)
	if !titleOK || !contentOK {
		return nil, apperrors.ErrModelNotFound(constants.DocumentModelPrefix + modelID)
	}

	doc := &models.ThreatModelDocument{
		ID:      modelID,
		Title:   title,
		Content: content,
	}
	if raw, ok := vals[2].(string); ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			doc.ThreatCount = n
		}
	}
	if raw, ok := vals[3].(string); ok {
		if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			doc.Generation = n
		}
	}
	return doc, nil
}

func (s *DocumentStoreImpl) PutDocument(ctx context.Context, doc *models.ThreatModelDocument) error {
	if doc.Generation == 0 {
		doc.Generation = 1
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key(doc.ID, constants.DocumentKeyTitle), doc.Title, 0)
		pipe.Set(ctx, key(doc.ID, constants.DocumentKeyContent), doc.Content, 0)
		pipe.Set(ctx, key(doc.ID, constants.DocumentKeyThreatCount), doc.ThreatCount, 0)
		pipe.Set(ctx, key(doc.ID, constants.DocumentKeyGeneration), doc.Generation, 0)
		return nil
	})
	if err != nil {
		return apperrors.ErrBackend("failed to store document", err)
	}
	return nil
}

// AppendSection appends to the document content under a Watch on the
// generation key. A concurrent writer either bumps the generation (caught
// by the explicit comparison) or races the transaction itself (caught by
// redis.TxFailedErr); both surface as a conflict.
func (s *DocumentStoreImpl) AppendSection(ctx context.Context, modelID, section string, expectedGeneration int64) (int64, error) {
	genKey := key(modelID, constants.DocumentKeyGeneration)
	contentKey := key(modelID, constants.DocumentKeyContent)

	var newGeneration int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		generation, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if generation != expectedGeneration {
			return errGenerationMismatch
		}

		content, err := tx.Get(ctx, contentKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		newGeneration = generation + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, contentKey, content+section, 0)
			pipe.Set(ctx, genKey, newGeneration, 0)
			return nil
		})
		return err
	}, genKey, contentKey)

	if err != nil {
		if errors.Is(err, errGenerationMismatch) || errors.Is(err, redis.TxFailedErr) {
			return 0, apperrors.ErrConflict(constants.DocumentModelPrefix + modelID)
		}
		return 0, apperrors.ErrBackend("document append failed", err)
	}
	return newGeneration, nil
}

func (s *DocumentStoreImpl) IncrementThreatCount(ctx context.Context, modelID string, delta int) (int, error) {
	count, err := s.client.IncrBy(ctx, key(modelID, constants.DocumentKeyThreatCount), int64(delta)).Result()
	if err != nil {
		return 0, apperrors.ErrBackend("failed to increment threat count", err)
	}
	return int(count), nil
}

func (s *DocumentStoreImpl) SetMergeMetadata(ctx context.Context, modelID string, meta *models.MergeMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return apperrors.ErrInternal("failed to encode merge metadata", err)
	}
	if err := s.client.Set(ctx, key(modelID, constants.DocumentKeyMergeMeta), data, 0).Err(); err != nil {
		return apperrors.ErrBackend("failed to store merge metadata", err)
	}
	return nil
}

func (s *DocumentStoreImpl) GetMergeMetadata(ctx context.Context, modelID string) (*models.MergeMetadata, error) {
	raw, err := s.client.Get(ctx, key(modelID, constants.DocumentKeyMergeMeta)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.ErrBackend("failed to load merge metadata", err)
	}
	var meta models.MergeMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, apperrors.ErrInternal("failed to decode merge metadata", err)
	}
	return &meta, nil
}
