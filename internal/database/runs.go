package database

import (
	"context"
	"fmt"
	"time"
)

// RunRecord 是一次运行的历史记录。
type RunRecord struct {
	RunID          string
	Title          string
	Status         string // success 或 failed
	Error          string
	Provider       string
	Style          string
	IntroTier      string
	Segments       int
	Fillers        int
	AudioPath      string
	TranscriptPath string
	Audio          time.Duration
	Elapsed        time.Duration
	StartedAt      time.Time
}

// RecordRun 写入一条运行记录，同一运行 ID 覆盖旧记录。
func (db *DB) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO runs (
			run_id, title, status, error, provider, style, intro_tier, segments, fillers,
			audio_path, transcript_path, audio_ms, elapsed_ms, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Title, r.Status, r.Error, r.Provider, r.Style, r.IntroTier, r.Segments, r.Fillers,
		r.AudioPath, r.TranscriptPath, r.Audio.Milliseconds(), r.Elapsed.Milliseconds(), r.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("[database] 写入运行记录失败: %w", err)
	}
	return nil
}

// RecentRuns 按开始时间倒序返回最近的 limit 条记录。
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT run_id, title, status, error, provider, style, intro_tier,
			segments, fillers, audio_path, transcript_path, audio_ms, elapsed_ms, started_at
		FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("[database] 查询运行记录失败: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var audioMs, elapsedMs, startedMs int64
		if err := rows.Scan(&r.RunID, &r.Title, &r.Status, &r.Error, &r.Provider, &r.Style, &r.IntroTier,
			&r.Segments, &r.Fillers, &r.AudioPath, &r.TranscriptPath, &audioMs, &elapsedMs, &startedMs); err != nil {
			return nil, fmt.Errorf("[database] 读取运行记录失败: %w", err)
		}
		r.Audio = time.Duration(audioMs) * time.Millisecond
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		r.StartedAt = time.UnixMilli(startedMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByStatus 返回各状态的运行次数。
func (db *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("[database] 统计运行记录失败: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
