package audiosync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type Config struct {
	// TargetRate is the analysis sample rate in Hz. One sample per
	// millisecond makes lags map directly to milliseconds.
	TargetRate int
	// MaxAnalysisSec caps how much audio is correlated per clip.
	MaxAnalysisSec int
	// MaxLagMs bounds the search window in both directions.
	MaxLagMs int
	// MinOverlap is the minimum overlapping sample count for a candidate lag.
	MinOverlap int
	// MinConfidence is the correlation floor below which the estimate is
	// discarded and the claimed timestamps stand.
	MinConfidence float64
	// SilenceRMS is the level below which a track is treated as silent.
	SilenceRMS float64
	// PrefixBytes is how much of each remote clip is fetched for analysis.
	PrefixBytes int64
}

func DefaultConfig() Config {
	return Config{
		TargetRate:     1000,
		MaxAnalysisSec: 30,
		MaxLagMs:       2000,
		MinOverlap:     1000,
		MinConfidence:  0.4,
		SilenceRMS:     0.01,
		PrefixBytes:    2_000_000,
	}
}

type ClipTrack struct {
	ID  string
	URL string
}

// Estimator refines clip alignment from audio content. Clock-based timestamps
// are the primary alignment; this is the fallback for clients whose clocks
// were never trustworthy.
type Estimator struct {
	httpClient *http.Client
	decoder    Decoder
	cfg        Config
	logger     *slog.Logger
}

func NewEstimator(httpClient *http.Client, decoder Decoder, cfg Config, logger *slog.Logger) *Estimator {
	return &Estimator{
		httpClient: httpClient,
		decoder:    decoder,
		cfg:        cfg,
		logger:     logger,
	}
}

// AlignClips estimates per-track offsets in milliseconds against the first
// track. A positive offset means the track actually started later than its
// claimed timestamp. Tracks that cannot be estimated get offset 0.
func (e *Estimator) AlignClips(ctx context.Context, tracks []ClipTrack) (map[string]int64, error) {
	offsets := make(map[string]int64, len(tracks))
	if len(tracks) == 0 {
		return offsets, nil
	}

	reference, err := e.fetchTrack(ctx, tracks[0])
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference track: %w", err)
	}
	offsets[tracks[0].ID] = 0

	for _, track := range tracks[1:] {
		samples, err := e.fetchTrack(ctx, track)
		if err != nil {
			e.logger.InfoContext(ctx, "failed to fetch track, keeping claimed timing", "track_id", track.ID, "error", err)
			offsets[track.ID] = 0
			continue
		}

		offsets[track.ID] = e.estimateOffset(ctx, reference, samples)
	}

	return offsets, nil
}

// estimateOffset correlates a track against the reference. Silent or
// low-confidence tracks yield 0 so a bad estimate never beats a clock.
func (e *Estimator) estimateOffset(ctx context.Context, reference, samples []float64) int64 {
	if rms(reference) < e.cfg.SilenceRMS || rms(samples) < e.cfg.SilenceRMS {
		e.logger.DebugContext(ctx, "track too quiet for correlation")
		return 0
	}

	lag, confidence := correlate(reference, samples, e.cfg.MaxLagMs, e.cfg.MinOverlap)
	if confidence < e.cfg.MinConfidence {
		e.logger.DebugContext(ctx, "correlation confidence too low", "confidence", confidence)
		return 0
	}

	return int64(lag)
}

// fetchTrack pulls the analysis prefix of a clip and reduces it to the
// analysis rate. Servers without range support send the whole object; the
// read is capped either way.
func (e *Estimator) fetchTrack(ctx context.Context, track ClipTrack) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", e.cfg.PrefixBytes-1))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.PrefixBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read track body: %w", err)
	}

	samples, sampleRate, err := e.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode track: %w", err)
	}

	return downsample(samples, sampleRate, e.cfg.TargetRate, e.cfg.MaxAnalysisSec*e.cfg.TargetRate), nil
}
