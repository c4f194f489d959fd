package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"

	"github.com/biologyguy/tattle/pkg/report"
)

// QueuedReport wraps a report that couldn't be transmitted with the metadata
// needed to list and retry it later.
type QueuedReport struct {
	Report   *report.Report `json:"report"`
	QueuedAt time.Time      `json:"queued_at"`
	Attempts int            `json:"attempts"`
}

// QueueReport stores a report for a later send attempt. The error ID is used
// as the key, so re-queueing the same report overwrites the earlier entry.
func QueueReport(ctx context.Context, rep *report.Report) error {
	return update(ctx, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(queueBucket)

		var queued QueuedReport
		previous := bucket.Get([]byte(rep.Error.ID))
		if previous != nil {
			err := json.Unmarshal(previous, &queued)
			if err == nil {
				queued.Attempts++
			}
		}

		queued.Report = rep
		if queued.QueuedAt.IsZero() {
			queued.QueuedAt = time.Now().UTC()
		}

		encoded, err := json.Marshal(queued)
		if err != nil {
			return eris.Wrap(err, "failed to serialize queued report")
		}

		return bucket.Put([]byte(rep.Error.ID), encoded)
	})
}

// ListReports returns all queued reports.
func ListReports(ctx context.Context) ([]QueuedReport, error) {
	var result []QueuedReport
	err := view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).ForEach(func(key, value []byte) error {
			var queued QueuedReport
			err := json.Unmarshal(value, &queued)
			if err != nil {
				return eris.Wrapf(err, "failed to parse queued report %s", key)
			}

			result = append(result, queued)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteReport removes a queued report.
func DeleteReport(ctx context.Context, errorID string) error {
	return update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).Delete([]byte(errorID))
	})
}

// MarkSubmitted records that an error with this fingerprint has been
// successfully reported.
func MarkSubmitted(ctx context.Context, fingerprint string) error {
	return update(ctx, func(tx *bolt.Tx) error {
		stamp, err := time.Now().UTC().MarshalText()
		if err != nil {
			return err
		}

		return tx.Bucket(fingerprintBucket).Put([]byte(fingerprint), stamp)
	})
}

// WasSubmitted returns true if an error with this fingerprint has been
// reported from this machine before.
func WasSubmitted(ctx context.Context, fingerprint string) (bool, error) {
	var found bool
	err := view(ctx, func(tx *bolt.Tx) error {
		found = tx.Bucket(fingerprintBucket).Get([]byte(fingerprint)) != nil
		return nil
	})

	return found, err
}

// GetSetting reads a persisted setting. Returns an empty string for missing keys.
func GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := view(ctx, func(tx *bolt.Tx) error {
		data := tx.Bucket(settingsBucket).Get([]byte(key))
		if data != nil {
			value = string(data)
		}
		return nil
	})

	return value, err
}

// SetSetting stores a persisted setting.
func SetSetting(ctx context.Context, key, value string) error {
	return update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(settingsBucket).Put([]byte(key), []byte(value))
	})
}
