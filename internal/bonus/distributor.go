// Package bonus activates accounts and pays multi-level referral bonuses.
package bonus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/metrics"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/referral"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/growtradenfts/platform/internal/txlog"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentProof is the externally verified activation payment.
type PaymentProof struct {
	TxHash        string
	WalletAddress string
}

// Level outcomes reported per bonus level.
const (
	OutcomePaid        = metrics.BonusPaid
	OutcomeMissed      = metrics.BonusMissed
	OutcomeUnallocated = metrics.BonusUnallocated
	OutcomeFailed      = metrics.BonusFailed
)

// LevelResult describes how one bonus level was resolved.
type LevelResult struct {
	Level   int    `json:"level"`
	UserID  uint64 `json:"user_id,omitempty"`
	Outcome string `json:"outcome"`
	Err     error  `json:"-"`
}

// Report summarizes one distribution run.
type Report struct {
	SourceUserID uint64        `json:"source_user_id"`
	Levels       []LevelResult `json:"levels"`
	Paid         int           `json:"paid"`
	Missed       int           `json:"missed"`
	Unallocated  int           `json:"unallocated"`
	Failed       int           `json:"failed"`
}

func (r *Report) add(res LevelResult) {
	r.Levels = append(r.Levels, res)
	switch res.Outcome {
	case OutcomePaid:
		r.Paid++
	case OutcomeMissed:
		r.Missed++
	case OutcomeUnallocated:
		r.Unallocated++
	default:
		r.Failed++
	}
}

// Distributor runs activation and the upline bonus walk.
type Distributor struct {
	ledger  *ledger.Ledger
	graph   *referral.Graph
	metrics *metrics.PlatformMetrics
}

// New constructs a Distributor.
func New(l *ledger.Ledger, g *referral.Graph) *Distributor {
	return &Distributor{ledger: l, graph: g, metrics: metrics.Platform()}
}

// Activate marks userID active, credits the activation fee to the user and
// records the payment proof. Bonus distribution runs after the activation
// commits; its per-level failures are logged and reported, never returned.
func (d *Distributor) Activate(ctx context.Context, userID uint64, proof PaymentProof) (*models.User, *Report, error) {
	started := time.Now()
	user, err := d.activate(ctx, userID, proof)
	d.metrics.ObserveOperation("activate", ledger.Outcome(err), started)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "amount": internalsettings.ActivationFee.String()}).Info("account activated")

	report := d.Distribute(ctx, user)
	return user, report, nil
}

func (d *Distributor) activate(ctx context.Context, userID uint64, proof PaymentProof) (*models.User, error) {
	proof.TxHash = strings.TrimSpace(proof.TxHash)
	proof.WalletAddress = strings.TrimSpace(proof.WalletAddress)
	if proof.TxHash == "" || proof.WalletAddress == "" {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "transaction hash and wallet address required")
	}

	var out *models.User
	errTx := d.ledger.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		if user.IsActive {
			return ledger.ErrAlreadyActive
		}
		user.IsActive = true
		user.ActivationPaid = true
		if errCredit := ledger.ApplyCredit(user, internalsettings.ActivationFee); errCredit != nil {
			return errCredit
		}
		if _, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:        user.ID,
			Kind:          models.KindActivation,
			Amount:        internalsettings.ActivationFee,
			Status:        models.StatusCompleted,
			TxHash:        proof.TxHash,
			WalletAddress: proof.WalletAddress,
			Description:   "Account activation payment",
		}); errRecord != nil {
			return ledger.FromStorage("bonus: record activation", errRecord)
		}
		out = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// Distribute walks source's upline for levels 1..10. Active uplines are
// credited one bonus unit, inactive ones have a missed bonus counted, and
// levels past the end of the chain go to the company sink. Each level
// commits on its own.
func (d *Distributor) Distribute(ctx context.Context, source *models.User) *Report {
	report := &Report{SourceUserID: source.ID}
	walker := d.graph.WalkUpline(ctx, source, internalsettings.BonusLevels)
	for walker.Next() {
		level := walker.Level()
		upline := walker.User()
		res := d.resolveLevel(ctx, source, upline.ID, level)
		report.add(res)
		d.metrics.IncBonus(res.Outcome)
		if res.Err != nil {
			log.WithError(res.Err).WithFields(log.Fields{
				"source_user_id": source.ID,
				"user_id":        upline.ID,
				"level":          level,
			}).Warn("bonus: level credit failed")
		}
	}

	next := len(report.Levels) + 1
	if errWalk := walker.Err(); errWalk != nil {
		log.WithError(errWalk).WithField("source_user_id", source.ID).Warn("bonus: upline walk stopped")
		for level := next; level <= internalsettings.BonusLevels; level++ {
			report.add(LevelResult{Level: level, Outcome: OutcomeFailed, Err: errWalk})
			d.metrics.IncBonus(OutcomeFailed)
		}
		return report
	}
	if next <= internalsettings.BonusLevels {
		if errSink := d.sinkUnallocated(ctx, source.ID, next); errSink != nil {
			log.WithError(errSink).WithField("source_user_id", source.ID).Warn("bonus: sink unallocated levels failed")
			for level := next; level <= internalsettings.BonusLevels; level++ {
				report.add(LevelResult{Level: level, Outcome: OutcomeFailed, Err: errSink})
				d.metrics.IncBonus(OutcomeFailed)
			}
			return report
		}
		for level := next; level <= internalsettings.BonusLevels; level++ {
			report.add(LevelResult{Level: level, Outcome: OutcomeUnallocated})
			d.metrics.IncBonus(OutcomeUnallocated)
		}
	}

	log.WithFields(log.Fields{
		"source_user_id": source.ID,
		"paid":           report.Paid,
		"missed":         report.Missed,
		"unallocated":    report.Unallocated,
		"failed":         report.Failed,
	}).Info("referral bonuses processed")
	return report
}

// resolveLevel pays or records a miss for one upline under its row lock.
func (d *Distributor) resolveLevel(ctx context.Context, source *models.User, uplineID uint64, level int) LevelResult {
	res := LevelResult{Level: level, UserID: uplineID}
	errTx := d.ledger.WithinUser(ctx, uplineID, func(tx *gorm.DB, upline *models.User) error {
		if !upline.IsActive {
			upline.MissedEarnings++
			res.Outcome = OutcomeMissed
			return ledger.AppendSink(ctx, tx, models.SinkEntry{
				Reason:        models.SinkMissedBonus,
				Amount:        internalsettings.LevelBonus,
				SourceUserID:  source.ID,
				ReferralLevel: level,
				Reference:     fmt.Sprintf("user:%d", upline.ID),
			})
		}

		if errCredit := ledger.ApplyCredit(upline, internalsettings.LevelBonus); errCredit != nil {
			return errCredit
		}
		upline.TotalEarnings = upline.TotalEarnings.Add(internalsettings.LevelBonus)
		earnings := upline.LevelEarningsVector(internalsettings.BonusLevels)
		earnings[level-1] = earnings[level-1].Add(internalsettings.LevelBonus)
		upline.LevelEarnings = datatypes.NewJSONType(earnings)

		sourceID := source.ID
		if _, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:        upline.ID,
			Kind:          models.KindReferralBonus,
			Amount:        internalsettings.LevelBonus,
			Status:        models.StatusCompleted,
			ReferralLevel: level,
			SourceUserID:  &sourceID,
			Description:   fmt.Sprintf("Level %d MLM bonus from %s", level, source.Name),
		}); errRecord != nil {
			return ledger.FromStorage("bonus: record referral bonus", errRecord)
		}
		res.Outcome = OutcomePaid
		return nil
	})
	if errTx != nil {
		res.Outcome = OutcomeFailed
		res.Err = errTx
	}
	return res
}

// sinkUnallocated routes levels from..10 to the company account.
func (d *Distributor) sinkUnallocated(ctx context.Context, sourceID uint64, from int) error {
	return d.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for level := from; level <= internalsettings.BonusLevels; level++ {
			if errSink := ledger.AppendSink(ctx, tx, models.SinkEntry{
				Reason:        models.SinkUnallocatedBonus,
				Amount:        internalsettings.LevelBonus,
				SourceUserID:  sourceID,
				ReferralLevel: level,
			}); errSink != nil {
				return errSink
			}
		}
		return nil
	})
}
