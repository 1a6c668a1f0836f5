// Package bus implements the directory-backed, one-file-per-message
// channel described by spec.md §4.5/§6: six topics, each its own directory,
// oldest-first by mtime, delete-on-read, at-most-once delivery. Producers
// and consumers never share in-memory state — every message is its own
// file.
package bus

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// Topic names one of the six message channels.
type Topic string

const (
	TopicProgram         Topic = "program"
	TopicProgramStatus   Topic = "program_status"
	TopicVisionRequest   Topic = "vision_request"
	TopicVisionResponse  Topic = "vision_response"
	TopicVisionAction    Topic = "vision_action"
	TopicVisionResult    Topic = "vision_result"
)

var allTopics = []Topic{
	TopicProgram, TopicProgramStatus,
	TopicVisionRequest, TopicVisionResponse,
	TopicVisionAction, TopicVisionResult,
}

const shortTick = 150 * time.Millisecond

// Bus is a filesystem-backed message channel rooted at a base directory,
// one subdirectory per topic.
type Bus struct {
	baseDir string
}

// New creates the topic directories under baseDir (if absent) and returns
// a ready Bus.
func New(baseDir string) (*Bus, error) {
	for _, t := range allTopics {
		if err := os.MkdirAll(filepath.Join(baseDir, string(t)), 0o755); err != nil {
			return nil, protoerr.Wrap(protoerr.KindCommunicationError, err, "create topic directory %q", t)
		}
	}
	return &Bus{baseDir: baseDir}, nil
}

func (b *Bus) topicDir(t Topic) string {
	return filepath.Join(b.baseDir, string(t))
}

// Send writes msg to topic as <id>.json. Write-then-rename gives the
// "file exists only after the whole content is written" guarantee.
func (b *Bus) Send(topic Topic, msg types.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return protoerr.Wrap(protoerr.KindCommunicationError, err, "marshal message for topic %q", topic)
	}
	dir := b.topicDir(topic)
	final := filepath.Join(dir, msg.ID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return protoerr.Wrap(protoerr.KindCommunicationError, err, "write message for topic %q", topic)
	}
	if err := os.Rename(tmp, final); err != nil {
		return protoerr.Wrap(protoerr.KindCommunicationError, err, "publish message for topic %q", topic)
	}
	log.Printf("[BUS] sent id=%s topic=%s type=%s", msg.ID, topic, msg.Type)
	return nil
}

// Receive returns the oldest (by mtime) message on topic, deleting the file
// on successful read. If none is present, it watches the directory (via
// fsnotify, falling back to a short-tick poll when the watch cannot be
// established — some sandboxes disallow inotify) until one arrives or
// timeout elapses. timeout == 0 means return immediately if none present.
func (b *Bus) Receive(ctx context.Context, topic Topic, timeout time.Duration) (*types.Message, error) {
	return b.receiveMatching(ctx, topic, timeout, nil)
}

// ReceiveByID waits for the message with the given id, keyed for
// correlated request/response pairs that reuse one id across topics.
func (b *Bus) ReceiveByID(ctx context.Context, topic Topic, id string, timeout time.Duration) (*types.Message, error) {
	return b.receiveMatching(ctx, topic, timeout, &id)
}

func (b *Bus) receiveMatching(ctx context.Context, topic Topic, timeout time.Duration, wantID *string) (*types.Message, error) {
	dir := b.topicDir(topic)

	if wantID != nil {
		path := filepath.Join(dir, *wantID+".json")
		if msg, err := readAndDelete(path); err == nil {
			return msg, nil
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	} else if msg, ok, err := readOldest(dir); err != nil {
		return nil, err
	} else if ok {
		return msg, nil
	}

	if timeout <= 0 {
		return nil, nil
	}

	deadline := time.Now().Add(timeout)
	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr == nil {
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			watcher = nil
		}
	}
	if watchErr != nil || watcher == nil {
		log.Printf("[BUS] fsnotify unavailable for topic %q, falling back to polling: %v", topic, watchErr)
		return b.pollUntil(ctx, dir, deadline, wantID)
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(remaining):
			return b.attemptRead(dir, wantID)
		case <-time.After(shortTick):
			if msg, err := b.attemptRead(dir, wantID); err != nil || msg != nil {
				return msg, err
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return b.pollUntil(ctx, dir, deadline, wantID)
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if msg, err := b.attemptRead(dir, wantID); err != nil || msg != nil {
				return msg, err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return b.pollUntil(ctx, dir, deadline, wantID)
			}
			log.Printf("[BUS] fsnotify error on topic watch: %v", err)
		}
	}
}

func (b *Bus) attemptRead(dir string, wantID *string) (*types.Message, error) {
	if wantID != nil {
		path := filepath.Join(dir, *wantID+".json")
		msg, err := readAndDelete(path)
		if err == nil {
			return msg, nil
		}
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	msg, ok, err := readOldest(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return msg, nil
}

func (b *Bus) pollUntil(ctx context.Context, dir string, deadline time.Time, wantID *string) (*types.Message, error) {
	for {
		if msg, err := b.attemptRead(dir, wantID); err != nil || msg != nil {
			return msg, err
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(shortTick):
		}
	}
}

// readOldest lists dir (ignoring .tmp files) and reads+deletes the file
// with the oldest mtime, implementing oldest-first ordering.
func readOldest(dir string) (*types.Message, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false, protoerr.Wrap(protoerr.KindCommunicationError, err, "list topic directory %q", dir)
	}
	var oldestName string
	var oldestMod time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if oldestName == "" || info.ModTime().Before(oldestMod) {
			oldestName = e.Name()
			oldestMod = info.ModTime()
		}
	}
	if oldestName == "" {
		return nil, false, nil
	}
	msg, err := readAndDelete(filepath.Join(dir, oldestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return msg, true, nil
}

// readAndDelete reads path, parses it as a Message, and deletes it. This is
// the commit point for at-most-once delivery.
func readAndDelete(path string) (*types.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msg types.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, protoerr.Wrap(protoerr.KindCommunicationError, err, "malformed message file %q", filepath.Base(path))
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, protoerr.Wrap(protoerr.KindCommunicationError, err, "delete consumed message file %q", filepath.Base(path))
	}
	return &msg, nil
}

// Clear removes every pending message on topic. Used for test teardown and
// operator recovery; not on the critical path of any spec.md operation.
func (b *Bus) Clear(topic Topic) error {
	entries, err := os.ReadDir(b.topicDir(topic))
	if err != nil {
		return protoerr.Wrap(protoerr.KindCommunicationError, err, "list topic directory %q", topic)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(b.topicDir(topic), e.Name())); err != nil && !os.IsNotExist(err) {
			return protoerr.Wrap(protoerr.KindCommunicationError, err, "clear %q", topic)
		}
	}
	return nil
}

// Pending reports how many messages currently sit in topic.
func (b *Bus) Pending(topic Topic) (int, error) {
	entries, err := os.ReadDir(b.topicDir(topic))
	if err != nil {
		return 0, protoerr.Wrap(protoerr.KindCommunicationError, err, "list topic directory %q", topic)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n, nil
}
