// Package services implements the Reservation Core and its supporting
// account/realtime services.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"seatgrid/internal/status"
	"seatgrid/models"
	"seatgrid/utils"
)

const (
	seatKeyPrefix    = "seat:"
	receiptKeyPrefix = "receipt:"
	soldValue        = "SOLD"
	lockedPrefix     = "LOCKED:"
)

// holdScriptSrc atomically checks-and-sets a seat's HSS key: exclusive hold
// and no overlap between LOCKED and SOLD both fall out of the check and the
// write never interleaving with another caller's script on the same key.
const holdScriptSrc = `
local key = KEYS[1]
local holder = ARGV[1]
local ttl_seconds = tonumber(ARGV[2])

local current = redis.call('GET', key)
if current then
	return 0
end

redis.call('SET', key, 'LOCKED:' .. holder, 'EX', ttl_seconds)
return 1
`

var holdScript = redis.NewScript(holdScriptSrc)

// releaseScriptSrc atomically deletes a LOCKED entry iff it is still owned
// by the caller. Permissive: a missing key, a foreign lock, or a SOLD key
// are all silent no-ops.
const releaseScriptSrc = `
local key = KEYS[1]
local holder = ARGV[1]

local current = redis.call('GET', key)
if current == 'LOCKED:' .. holder then
	redis.call('DEL', key)
end
return 1
`

var releaseScript = redis.NewScript(releaseScriptSrc)

// ReservationService is the Reservation Core: the state machine that owns
// every invariant in the data model by coordinating the HSS (Redis) and
// the DRS (a PocketBase "seats" collection).
type ReservationService struct {
	app   core.App
	redis *redis.Client

	holdDuration     time.Duration
	receiptRetention time.Duration
	drsTimeout       time.Duration

	hssBreaker *utils.CircuitBreaker
	drsBreaker *utils.CircuitBreaker

	realtime *RealtimeNotifier
	metrics  ReservationMetrics
}

// ReservationMetrics is the subset of monitoring.Metrics the core reports
// to, kept as an interface here so the core does not import the monitoring
// package directly (avoids an import cycle and keeps unit tests cheap).
type ReservationMetrics interface {
	ObserveHold(outcome string)
	ObserveRelease()
	ObservePurchase(outcome string)
	ObserveHoldDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveHold(string)            {}
func (noopMetrics) ObserveRelease()                {}
func (noopMetrics) ObservePurchase(string)         {}
func (noopMetrics) ObserveHoldDuration(time.Duration) {}

func NewReservationService(app core.App, redisClient *redis.Client, holdDuration, receiptRetention, drsTimeout time.Duration) *ReservationService {
	return &ReservationService{
		app:              app,
		redis:            redisClient,
		holdDuration:     holdDuration,
		receiptRetention: receiptRetention,
		drsTimeout:       drsTimeout,
		hssBreaker:       utils.NewCircuitBreaker("hss"),
		drsBreaker:       utils.NewCircuitBreaker("drs"),
		metrics:          noopMetrics{},
	}
}

// WithRealtime attaches a realtime notifier, returning the service for
// chaining at wiring time.
func (s *ReservationService) WithRealtime(n *RealtimeNotifier) *ReservationService {
	s.realtime = n
	return s
}

// WithMetrics attaches a metrics sink, returning the service for chaining.
func (s *ReservationService) WithMetrics(m ReservationMetrics) *ReservationService {
	if m != nil {
		s.metrics = m
	}
	return s
}

func seatKey(seatID string) string { return seatKeyPrefix + seatID }
func receiptKey(idempotencyKey string) string { return receiptKeyPrefix + idempotencyKey }

// Hold acquires a time-bounded exclusive claim on a seat for a single user.
// A client re-acquiring its own hold is treated as a conflict: holds are
// not renewable via Hold, only via Release then Hold.
func (s *ReservationService) Hold(ctx context.Context, seatID, userID string) error {
	res, err := s.hssBreaker.Execute(ctx, func() (interface{}, error) {
		return holdScript.Eval(ctx, s.redis, []string{seatKey(seatID)}, userID, int64(s.holdDuration/time.Second)).Result()
	})
	if err != nil {
		s.metrics.ObserveHold("internal")
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	acquired, _ := res.(int64)
	if acquired != 1 {
		s.metrics.ObserveHold("conflict")
		return status.ErrSeatUnavailable
	}

	s.metrics.ObserveHold("acquired")
	if s.realtime != nil {
		s.realtime.PublishSeatLocked(seatID, userID)
	}
	return nil
}

// Release is idempotent and permissive: releases fire on navigation events
// and must not fail under races with TTL expiry or concurrent purchases.
func (s *ReservationService) Release(ctx context.Context, seatID, userID string) error {
	heldVal, heldTTL, _ := s.readSeatKeyWithTTL(ctx, seatID)

	_, err := s.hssBreaker.Execute(ctx, func() (interface{}, error) {
		return releaseScript.Eval(ctx, s.redis, []string{seatKey(seatID)}, userID).Result()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	s.metrics.ObserveRelease()
	// A release that found no hold of the caller's changed nothing: there is
	// no hold duration to report and no state change to broadcast.
	if heldVal != lockedPrefix+userID {
		return nil
	}
	s.metrics.ObserveHoldDuration(s.holdDuration - heldTTL)
	if s.realtime != nil {
		s.realtime.PublishSeatReleased(seatID, userID)
	}
	return nil
}

// Purchase promotes a hold to a permanent booking under transactional
// guarantees. Steps below are numbered to match the order they must run in.
func (s *ReservationService) Purchase(ctx context.Context, idempotencyKey, seatID, userID string) (*models.Receipt, error) {
	// 1. Idempotency short-circuit.
	if existing, err := s.lookupReceipt(ctx, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	// 2. Hold verification.
	held, heldTTL, err := s.currentHolderWithTTL(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if held != userID {
		s.metrics.ObservePurchase("lock_expired_or_stolen")
		return nil, status.ErrLockExpiredOrStolen
	}

	// 3 & 4. Durable transaction: find seat, reject if already booked,
	// otherwise commit status=booked, user_id=userID.
	txCtx, cancel := context.WithTimeout(ctx, s.drsTimeout)
	defer cancel()

	if err := s.commitBooking(txCtx, seatID, userID); err != nil {
		if errors.Is(err, status.ErrAlreadySold) {
			s.metrics.ObservePurchase("already_sold")
		} else {
			s.metrics.ObservePurchase("internal")
		}
		return nil, err
	}

	// 5. Finalize HSS: overwrite LOCKED with SOLD, no TTL.
	if _, err := s.hssBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, s.redis.Set(ctx, seatKey(seatID), soldValue, 0).Err()
	}); err != nil {
		// The DRS already committed; the seat is durably sold even though
		// the HSS write failed. The reconciliation sweep will repair this.
		log.Printf("reservation: HSS finalize failed for seat %s after DRS commit: %v", seatID, err)
	}

	// 6. Publish receipt.
	txID, err := utils.GenerateTxID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	receipt := &models.Receipt{
		Success:  true,
		TxID:     txID,
		SeatID:   seatID,
		UserID:   userID,
		IssuedAt: time.Now().UTC(),
	}
	if err := s.storeReceipt(ctx, idempotencyKey, receipt); err != nil {
		log.Printf("reservation: receipt persist failed for seat %s key %s: %v", seatID, idempotencyKey, err)
	}

	s.metrics.ObservePurchase("success")
	s.metrics.ObserveHoldDuration(s.holdDuration - heldTTL)
	if s.realtime != nil {
		s.realtime.PublishSeatSold(seatID, userID)
	}

	return receipt, nil
}

func (s *ReservationService) lookupReceipt(ctx context.Context, idempotencyKey string) (*models.Receipt, error) {
	val, err := s.redis.Get(ctx, receiptKey(idempotencyKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	var receipt models.Receipt
	if err := json.Unmarshal([]byte(val), &receipt); err != nil {
		return nil, fmt.Errorf("%w: corrupt receipt: %v", status.ErrInternal, err)
	}
	return &receipt, nil
}

func (s *ReservationService) storeReceipt(ctx context.Context, idempotencyKey string, receipt *models.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	// SetNX: a receipt is write-once per idempotency_key; a conflicting
	// write here would be a bug, never a legitimate race (DRS's unique
	// booking check already excludes concurrent double-purchase).
	return s.redis.SetNX(ctx, receiptKey(idempotencyKey), data, s.receiptRetention).Err()
}

func (s *ReservationService) currentHolder(ctx context.Context, seatID string) (string, error) {
	val, err := s.redis.Get(ctx, seatKey(seatID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	if !strings.HasPrefix(val, lockedPrefix) {
		return "", nil // SOLD, or any non-LOCKED marker: nobody "holds" it
	}
	return strings.TrimPrefix(val, lockedPrefix), nil
}

// currentHolderWithTTL is currentHolder plus the key's remaining TTL, used
// where the caller also needs to report how long the hold lived (Purchase's
// hold-duration metric).
func (s *ReservationService) currentHolderWithTTL(ctx context.Context, seatID string) (string, time.Duration, error) {
	val, ttl, err := s.readSeatKeyWithTTL(ctx, seatID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", status.ErrInternal, err)
	}
	if !strings.HasPrefix(val, lockedPrefix) {
		return "", 0, nil
	}
	return strings.TrimPrefix(val, lockedPrefix), ttl, nil
}

// commitBooking runs the DRS transaction: find the seat by seat_id, reject
// if already booked, otherwise commit the booking.
func (s *ReservationService) commitBooking(ctx context.Context, seatID, userID string) error {
	_, err := s.drsBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, s.app.RunInTransaction(func(txApp core.App) error {
			record, err := txApp.FindFirstRecordByFilter("seats", "seat_id = {:id}", map[string]any{"id": seatID})
			if err != nil {
				return fmt.Errorf("%w: %v", status.ErrNotFound, err)
			}
			if record.GetString("status") == string(models.SeatBooked) {
				return status.ErrAlreadySold
			}
			record.Set("status", string(models.SeatBooked))
			record.Set("user_id", userID)
			return txApp.Save(record)
		})
	})
	return err
}

// seatRow is the shape of a raw "seats" row, read directly via the DRS's
// query builder rather than through the record/collection layer: Snapshot
// runs on every poll and has no use for PocketBase's field validation or
// access rules, only the committed columns.
type seatRow struct {
	SeatID string  `db:"seat_id"`
	Row    string  `db:"row"`
	Number int     `db:"number"`
	Tier   string  `db:"tier"`
	Price  float64 `db:"price"`
	Status string  `db:"status"`
}

// Snapshot produces an eventually-consistent merged view for UI polling:
// DRS wins on booked, else HSS overlays LOCKED/SOLD/available. This read is
// NOT serializable against concurrent holds/purchases.
func (s *ReservationService) Snapshot(ctx context.Context) ([]models.SeatView, error) {
	var rows []seatRow
	err := s.app.DB().
		Select("seat_id", "row", "number", "tier", "price", "status").
		From("seats").
		OrderBy("row ASC", "number ASC").
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	views := make([]models.SeatView, 0, len(rows))
	for _, row := range rows {
		view := models.SeatView{
			ID:     row.SeatID,
			Row:    row.Row,
			Number: row.Number,
			Tier:   models.Tier(row.Tier),
			Price:  int64(row.Price),
		}

		if row.Status == string(models.SeatBooked) {
			view.State = models.ViewBooked
			views = append(views, view)
			continue
		}

		s.overlayHSS(ctx, row.SeatID, &view)
		views = append(views, view)
	}

	return views, nil
}

// overlayHSS degrades gracefully: a failed HSS read is a benign error here
// and snapshot falls back to "DRS only" (available, since DRS already said
// not-booked).
func (s *ReservationService) overlayHSS(ctx context.Context, seatID string, view *models.SeatView) {
	val, ttl, err := s.readSeatKeyWithTTL(ctx, seatID)
	if err != nil {
		view.State = models.ViewAvailable
		return
	}

	switch {
	case val == "":
		view.State = models.ViewAvailable
	case val == soldValue:
		view.State = models.ViewBooked
	case strings.HasPrefix(val, lockedPrefix):
		view.State = models.ViewLocked
		view.LockedBy = strings.TrimPrefix(val, lockedPrefix)
		view.TTL = int64(ttl / time.Second)
	default:
		view.State = models.ViewAvailable
	}
}

func (s *ReservationService) readSeatKeyWithTTL(ctx context.Context, seatID string) (string, time.Duration, error) {
	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, seatKey(seatID))
	ttlCmd := pipe.TTL(ctx, seatKey(seatID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", 0, err
	}

	val, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}

	ttl, _ := ttlCmd.Result()
	if ttl < 0 {
		ttl = 0
	}
	return val, ttl, nil
}

// RunReconciliation is a background sweep that periodically scans the DRS
// for seats marked booked whose HSS key is not
// SOLD (the narrow window after DRS commit and before HSS finalize) and
// republishes the HSS finalize step. It never touches receipts: a missing
// receipt after a DRS commit is the ALREADY_SOLD operator-alert case, not
// something this sweep manufactures data for.
func (s *ReservationService) RunReconciliation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileOnce(ctx)
		}
	}
}

func (s *ReservationService) reconcileOnce(ctx context.Context) {
	var rows []seatRow
	err := s.app.DB().
		Select("seat_id").
		From("seats").
		Where(dbx.HashExp{"status": string(models.SeatBooked)}).
		All(&rows)
	if err != nil {
		log.Printf("reservation: reconciliation scan failed: %v", err)
		return
	}

	for _, row := range rows {
		seatID := row.SeatID
		val, err := s.redis.Get(ctx, seatKey(seatID)).Result()
		if err == nil && val == soldValue {
			continue
		}
		if err := s.redis.Set(ctx, seatKey(seatID), soldValue, 0).Err(); err != nil {
			log.Printf("reservation: reconciliation finalize failed for seat %s: %v", seatID, err)
			continue
		}
		log.Printf("reservation: reconciled HSS finalize for seat %s", seatID)
	}
}

// ResetAll deletes every seat:*, receipt:* and otp:* key from the HSS and
// resets every DRS seat record to available/no-owner. Rate-limit bucket keys
// in the HSS are not deleted. Used by Admin Control.
func (s *ReservationService) ResetAll(ctx context.Context) error {
	if err := s.flushSeatKeys(ctx); err != nil {
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	records, err := s.app.FindRecordsByFilter("seats", "", "", -1, 0, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrInternal, err)
	}

	for _, record := range records {
		record.Set("status", string(models.SeatAvailable))
		record.Set("user_id", "")
		if err := s.app.Save(record); err != nil {
			return fmt.Errorf("%w: %v", status.ErrInternal, err)
		}
	}

	if s.realtime != nil {
		s.realtime.PublishReset()
	}
	return nil
}

func (s *ReservationService) flushSeatKeys(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, seatKeyPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	cursor = 0
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, receiptKeyPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	cursor = 0
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, otpKeyPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}
