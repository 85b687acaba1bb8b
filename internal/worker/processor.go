package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/neuroaroma/api/internal/config"
	"github.com/neuroaroma/api/internal/model"
	"github.com/neuroaroma/api/internal/store"
	"github.com/neuroaroma/api/internal/websocket"
)

// progressRe matches the worker's progress lines on stdout
var progressRe = regexp.MustCompile(`Progress: (\d+)/(\d+) frequencies processed`)

// Processor bridges the job store and the external transformation
// worker. One Process call owns the full lifecycle of one job; the
// upload service runs it in its own goroutine.
type Processor struct {
	store *store.Store
	hub   *websocket.Hub
	cfg   config.WorkerConfig
}

// New creates a new Processor
func New(s *store.Store, hub *websocket.Hub, cfg config.WorkerConfig) *Processor {
	return &Processor{
		store: s,
		hub:   hub,
		cfg:   cfg,
	}
}

// Process spawns the worker for the staged file and drives the job to a
// terminal state. The staged file is deleted when processing ends,
// whatever the outcome.
func (p *Processor) Process(jobID int64, stagedPath, originalName string) {
	defer func() {
		if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove staged file %s: %v", stagedPath, err)
		}
	}()

	p.setStatus(jobID, model.JobStatusProcessing)
	log.Printf("Starting processing job %d (%s)", jobID, originalName)

	ctx := context.Background()
	if p.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.cfg.PythonBin, p.cfg.Script,
		stagedPath, originalName, strconv.FormatInt(jobID, 10))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.failJob(jobID, err.Error())
		return
	}

	if err := cmd.Start(); err != nil {
		p.failJob(jobID, err.Error())
		return
	}

	// The worker interleaves progress lines with the final result record
	// on one stream. Classify each line as it arrives, keep everything
	// that is not progress, and only interpret the remainder once the
	// process has exited.
	var output bytes.Buffer
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := progressRe.FindStringSubmatch(line); m != nil {
			processed, _ := strconv.Atoi(m[1])
			total, _ := strconv.Atoi(m[2])
			p.hub.BroadcastProgress(jobID, processed, total)
			continue
		}
		output.WriteString(line)
		output.WriteByte('\n')
	}

	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		p.failJob(jobID, fmt.Sprintf("processing timed out after %d seconds", p.cfg.TimeoutSeconds))
		return
	}

	if waitErr != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				errMsg = fmt.Sprintf("processing failed with exit code %d", exitErr.ExitCode())
			} else {
				errMsg = waitErr.Error()
			}
		}
		p.failJob(jobID, errMsg)
		return
	}

	result, err := parseResult(output.String())
	if err != nil {
		log.Printf("Job %d worker output unparseable: %v", jobID, err)
		p.failJob(jobID, "failed to parse processing results")
		return
	}

	p.completeJob(jobID, result)
}

// parseResult extracts the worker's result record from the accumulated
// non-progress stdout. The record is the last meaningful line.
func parseResult(output string) (*model.WorkerResult, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var result model.WorkerResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, err
		}
		return &result, nil
	}
	return nil, fmt.Errorf("no result record in worker output")
}

func (p *Processor) setStatus(jobID int64, status model.JobStatus) {
	if _, ok := p.store.Update(jobID, store.JobUpdate{Status: &status}); !ok {
		log.Printf("Job %d no longer exists, skipping status update", jobID)
	}
}

func (p *Processor) completeJob(jobID int64, result *model.WorkerResult) {
	status := model.JobStatusCompleted
	job, ok := p.store.Update(jobID, store.JobUpdate{
		Status:         &status,
		FrequencyCount: &result.FrequencyCount,
		FrequencyMin:   &result.FrequencyMin,
		FrequencyMax:   &result.FrequencyMax,
		AudioFileName:  &result.AudioFile,
		PDFFileName:    &result.PDFFile,
	})
	if !ok {
		log.Printf("Job %d no longer exists, dropping result", jobID)
		return
	}

	p.hub.BroadcastComplete(jobID, job)
	log.Printf("Job %d completed: %d frequencies, aroma %s", jobID, result.FrequencyCount, result.AromaID)
}

func (p *Processor) failJob(jobID int64, errMsg string) {
	status := model.JobStatusFailed
	if _, ok := p.store.Update(jobID, store.JobUpdate{
		Status:       &status,
		ErrorMessage: &errMsg,
	}); !ok {
		log.Printf("Job %d no longer exists, dropping failure", jobID)
		return
	}

	p.hub.BroadcastError(jobID, errMsg)
	log.Printf("Job %d failed: %s", jobID, errMsg)
}
