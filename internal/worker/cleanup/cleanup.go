// Package cleanup は保持期間を超えた業務データの自動削除ジョブを提供する。
// 送信済み・取り消し済みのリマインダーと古い通話記録を日次バッチで削除する。
// 未送信のリマインダーは期間に関係なく残す。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/clinicman/internal/metrics"
)

const (
	// DefaultReminderRetentionDays はリマインダーの既定の保持日数。
	DefaultReminderRetentionDays = 90
	// DefaultCallRetentionDays は通話記録の既定の保持日数。
	DefaultCallRetentionDays = 365
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Config は削除対象ごとの保持日数。0以下の値は既定値に置き換える。
type Config struct {
	ReminderRetentionDays int
	CallRetentionDays     int
}

// target は1回の DELETE で処理する削除対象。
type target struct {
	name          string
	query         string
	retentionDays int
}

// CleanupJob は保持期間を超過したデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db        Executor
	logger    *slog.Logger
	collector metrics.MetricsCollector
	targets   []target
}

// NewCleanupJob は新しいCleanupJobを生成する。collectorがnilの場合は記録しない。
func NewCleanupJob(db Executor, logger *slog.Logger, cfg Config, collector metrics.MetricsCollector) *CleanupJob {
	if cfg.ReminderRetentionDays <= 0 {
		cfg.ReminderRetentionDays = DefaultReminderRetentionDays
	}
	if cfg.CallRetentionDays <= 0 {
		cfg.CallRetentionDays = DefaultCallRetentionDays
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	return &CleanupJob{
		db:        db,
		logger:    logger,
		collector: collector,
		targets: []target{
			{
				name: "reminders",
				// 状態変更時に updated_at が更新されるため、終了してからの経過日数で判定する
				query: `DELETE FROM reminders
				        WHERE status IN ('sent', 'cancelled')
				          AND updated_at < now() - $1::interval`,
				retentionDays: cfg.ReminderRetentionDays,
			},
			{
				name:          "calls",
				query:         `DELETE FROM calls WHERE called_at < now() - $1::interval`,
				retentionDays: cfg.CallRetentionDays,
			},
		},
	}
}

// Run は保持期間を超過したリマインダーと通話記録を削除する。
// いずれかの削除に失敗した場合は残りを実行せずにエラーを返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	var total int64

	for _, t := range j.targets {
		deleted, err := j.runTarget(ctx, t)
		if err != nil {
			return err
		}
		total += deleted
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_total", total),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (j *CleanupJob) runTarget(ctx context.Context, t target) (int64, error) {
	interval := fmt.Sprintf("%d days", t.retentionDays)

	result, err := j.db.ExecContext(ctx, t.query, interval)
	if err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("target", t.name),
			slog.String("error", err.Error()),
			slog.Int("retention_days", t.retentionDays),
		)
		return 0, fmt.Errorf("%sのクリーンアップに失敗: %w", t.name, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("target", t.name),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%sの削除件数の取得に失敗: %w", t.name, err)
	}

	j.collector.RecordCleanupDeleted(t.name, deleted)
	j.logger.Info("保持期間を超えたデータを削除しました",
		slog.String("target", t.name),
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", t.retentionDays),
	)
	return deleted, nil
}
