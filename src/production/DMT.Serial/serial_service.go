package dmtserial

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	config "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Config"
	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	normalizer "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Normalizer"
	recorder "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Recorder"
)

const (
	writeTimeout   = 5 * time.Second
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second

	// maxLineBytes bounds a single telemetry line. The default bufio.Scanner
	// limit is 64KB, and a line past the limit errors the whole session.
	maxLineBytes = 1 << 20
)

// Service reads newline-delimited JSON telemetry from a local serial port
// and feeds it through the same normalize-and-record path as the MQTT
// adapter. A malformed line is dropped; the feed keeps running. When the
// port cannot be opened or the read fails, the service retries with
// exponential backoff.
type Service struct {
	cfg    config.SerialConfig
	rec    *recorder.Recorder
	log    *logger.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.SerialConfig, rec *recorder.Recorder, log *logger.Logger) *Service {
	return &Service{
		cfg: cfg,
		rec: rec,
		log: log.WithComponent("serial"),
	}
}

func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		port, err := serial.Open(s.cfg.Port, &serial.Mode{BaudRate: s.cfg.BaudRate})
		if err != nil {
			s.log.WithField("port", s.cfg.Port).ErrorWithError(err, "serial open failed, retrying")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		s.log.WithField("port", s.cfg.Port).WithField("baud", s.cfg.BaudRate).Info("serial port open")
		backoff = initialBackoff

		// Close the port when the context ends so the blocking read
		// below returns.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				port.Close()
			case <-done:
			}
		}()

		err = s.consume(ctx, port)
		close(done)
		port.Close()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.ErrorWithError(err, "serial read failed, reopening")
		}
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// consume splits the stream on newlines and handles each line until the
// reader fails or the context ends.
func (s *Service) consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.handleLine(ctx, scanner.Bytes())
	}
	return scanner.Err()
}

// handleLine decodes, normalizes and records one line. Failures discard the
// line only.
func (s *Service) handleLine(ctx context.Context, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(line, &payload); err != nil {
		s.log.ErrorWithError(err, "dropping undecodable serial line")
		return
	}

	rd, err := normalizer.Normalize(payload, normalizer.SourceSerial)
	if err != nil {
		s.log.ErrorWithError(err, "dropping invalid serial payload")
		return
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.rec.Record(wctx, rd); err != nil {
		s.log.WithField("deviceId", rd.DeviceID).ErrorWithError(err, "dropping reading, store write failed")
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep waits for d or until the context ends. Returns false when the
// context ended.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
