// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
)

// Common key prefixes
const (
	// Entity prefixes
	KeyPrefixRecord   = "record"
	KeyPrefixLedger   = "ledger"
	KeyPrefixDelivery = "delivery"
	KeyPrefixSettings = "settings"

	// Index prefixes
	KeyPrefixIndex      = "index"
	KeyPrefixIndexOwner = "owner"
)

// HourBucketLayout formats the hour component of time-ordered index keys.
const HourBucketLayout = "2006010215"

// keyEncoding is URL-safe so encoded parts only use characters NATS KV
// accepts in keys.
var keyEncoding = base64.URLEncoding

// KeyBuilder provides utilities for building consistent NATS KV keys
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds a key for an entity (e.g., "record/uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	key := fmt.Sprintf("%s/%s", entityType, uid)
	return kb.applyPrefix(key, false)
}

// EntityKeyEncoded builds an encoded key for an entity
func (kb *KeyBuilder) EntityKeyEncoded(entityType, uid string) string {
	key := fmt.Sprintf("%s/%s", entityType, uid)
	return kb.applyPrefix(key, true)
}

// OwnerHourIndexKeyEncoded builds the encoded time index key
// "index/owner/<owner>/<hour>/<uid>" used for range scans of an owner's records.
func (kb *KeyBuilder) OwnerHourIndexKeyEncoded(ownerID string, start time.Time, entityUID string) string {
	key := kb.CompoundKey(KeyPrefixIndex, KeyPrefixIndexOwner, ownerID, HourBucket(start), entityUID)
	encoded, err := kb.EncodeKey(key)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "key", key)
		return key
	}
	return encoded
}

// OwnerIndexFilterEncoded returns a subject filter matching every time index
// key of an owner.
func (kb *KeyBuilder) OwnerIndexFilterEncoded(ownerID string) string {
	key := kb.CompoundKey(KeyPrefixIndex, KeyPrefixIndexOwner, ownerID, ">")
	encoded, err := kb.EncodeKey(key)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "key", key)
		return key
	}
	return encoded
}

// OwnerHourIndexFilterEncoded returns a subject filter matching the time
// index keys of an owner within one hour bucket.
func (kb *KeyBuilder) OwnerHourIndexFilterEncoded(ownerID string, hour time.Time) string {
	key := kb.CompoundKey(KeyPrefixIndex, KeyPrefixIndexOwner, ownerID, HourBucket(hour), "*")
	encoded, err := kb.EncodeKey(key)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "key", key)
		return key
	}
	return encoded
}

// CompoundKey builds a compound key from multiple parts
func (kb *KeyBuilder) CompoundKey(parts ...string) string {
	key := strings.Join(parts, "/")
	return kb.applyPrefix(key, false)
}

// HourBucket floors t to its UTC hour and formats it for index keys.
func HourBucket(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format(HourBucketLayout)
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string, encode bool) string {
	var fullKey string
	if kb.prefix == "" {
		fullKey = key
	} else {
		fullKey = fmt.Sprintf("%s/%s", kb.prefix, key)
	}

	if encode {
		encodedKey, err := kb.EncodeKey(fullKey)
		if err != nil {
			slog.Error("error encoding key", logging.ErrKey, err, "key", fullKey)
			return fullKey
		}
		return encodedKey
	}
	return fullKey
}

// EncodeKey encodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}
		if part == "" {
			return "", nats.ErrInvalidKey
		}

		res = append(res, keyEncoding.EncodeToString([]byte(part)))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey decodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := keyEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return fmt.Sprintf("/%s", strings.Join(res, "/")), nil
}
