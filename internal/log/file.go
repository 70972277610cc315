package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"dnsproxy/internal/concurrent"
)

// FileLogger is an asynchronous, leveled logging engine that appends formatted records to a log
// file on disk. Producers enqueue onto a lock-free queue and return immediately; a single
// dedicated consumer goroutine serializes all file I/O, so the hot request path never blocks on a
// disk write. WARNING and ERROR records are additionally mirrored to standard error so operators
// watching the process directly still see faults without tailing the log file.
type FileLogger struct {
	level   Level
	project string
	file    *os.File
	queue   *concurrent.Queue
	done    chan struct{}
	drained chan struct{}
}

type record struct {
	level     Level
	message   string
	timestamp time.Time
}

var (
	instance     *FileLogger
	instanceOnce sync.Once
)

// Instance lazily initializes and returns the process-wide singleton FileLogger. Subsequent calls
// with a different path or level are ignored; only the first call takes effect.
func Instance(path string, project string, level Level) (*FileLogger, error) {
	var err error

	instanceOnce.Do(func() {
		instance, err = newFileLogger(path, project, level)
	})

	return instance, err
}

func newFileLogger(path string, project string, level Level) (*FileLogger, error) {
	f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if openErr != nil {
		return nil, fmt.Errorf("log: error opening log file: path=%s err=%v", path, openErr)
	}

	l := &FileLogger{
		level:   level,
		project: project,
		file:    f,
		queue:   concurrent.NewQueue(),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	go l.consume()

	return l, nil
}

// Debug logs a debug message, if permitted by the current level.
func (l *FileLogger) Debug(format string, v ...interface{}) {
	l.log(Debug, format, v...)
}

// Info logs an informational message, if permitted by the current level.
func (l *FileLogger) Info(format string, v ...interface{}) {
	l.log(Info, format, v...)
}

// Warn logs a warning message, if permitted by the current level.
func (l *FileLogger) Warn(format string, v ...interface{}) {
	l.log(Warning, format, v...)
}

// Error logs an error message, if permitted by the current level.
func (l *FileLogger) Error(format string, v ...interface{}) {
	l.log(Error, format, v...)
}

// Level reads the current logging level.
func (l *FileLogger) Level() Level {
	return l.level
}

// Shutdown stops accepting new enqueues from the consumer's perspective, drains any records still
// queued, and closes the backing file. It blocks until the drain completes.
func (l *FileLogger) Shutdown() {
	close(l.done)
	<-l.drained
	l.file.Close()
}

func (l *FileLogger) log(level Level, format string, v ...interface{}) {
	if !l.level.Enables(level) {
		return
	}

	l.queue.Enqueue(record{
		level:     level,
		message:   fmt.Sprintf(format, v...),
		timestamp: time.Now(),
	})

	if level == Warning || level == Error {
		fmt.Fprintf(os.Stderr, "%s %s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, v...))
	}
}

// consume is the single consumer goroutine that dequeues records and appends them to the log
// file. When the queue is empty it sleeps for one millisecond before polling again, since log
// volume is bursty and a blocking channel read would complicate the drain-on-shutdown handshake.
func (l *FileLogger) consume() {
	for {
		select {
		case <-l.done:
			l.drain()
			close(l.drained)
			return
		default:
			if rec, ok := l.queue.TryDequeue(); ok {
				l.write(rec.(record))
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func (l *FileLogger) drain() {
	for {
		rec, ok := l.queue.TryDequeue()
		if !ok {
			return
		}
		l.write(rec.(record))
	}
}

func (l *FileLogger) write(rec record) {
	line := fmt.Sprintf(
		"%s - %s - %s - %s\n",
		rec.timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		l.project,
		rec.level,
		rec.message,
	)

	if _, err := l.file.WriteString(line); err != nil {
		fmt.Fprintf(os.Stdout, "log: failed to write record to log file: err=%v\n", err)
	}
}
