package movepick

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const readyTimeout = 4 * time.Second

// Engine drives one UCI engine process and proposes moves for automated
// participants. Searches serialize on the process, which is fine at the
// automated-turn rate; a busy engine just makes bot turns arrive later.
type Engine struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdout      *bufio.Reader
	thinkMillis int

	mu     sync.Mutex
	search sync.Mutex
}

// NewEngine launches binaryPath and completes the UCI handshake. thinkMillis
// bounds each search.
func NewEngine(ctx context.Context, binaryPath string, thinkMillis int) (*Engine, error) {
	if thinkMillis <= 0 {
		thinkMillis = 500
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	e := &Engine{
		cmd:         cmd,
		stdin:       stdin,
		stdout:      bufio.NewReader(stdoutPipe),
		thinkMillis: thinkMillis,
	}
	if err := e.initialize(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Propose searches the position reached by movesUCI from the start position
// and returns the engine's best move in UCI notation.
func (e *Engine) Propose(ctx context.Context, movesUCI []string) (string, error) {
	e.search.Lock()
	defer e.search.Unlock()

	position := "position startpos"
	if len(movesUCI) > 0 {
		position += " moves " + strings.Join(movesUCI, " ")
	}
	if err := e.send(position + "\n"); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}
	if err := e.send("go movetime " + strconv.Itoa(e.thinkMillis) + "\n"); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	deadline := time.Duration(e.thinkMillis+2000) * time.Millisecond
	searchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for {
		line, err := e.readLine(searchCtx)
		if err != nil {
			return "", fmt.Errorf("read line: %w", err)
		}
		if !strings.HasPrefix(line, "bestmove") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 || parts[1] == "(none)" {
			return "", fmt.Errorf("engine returned no move")
		}
		return strings.ToLower(parts[1]), nil
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin != nil {
		e.stdin.Close()
	}
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	if e.cmd != nil {
		return e.cmd.Wait()
	}
	return nil
}

func (e *Engine) initialize(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if err := e.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := e.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	if err := e.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := e.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (e *Engine) send(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := io.WriteString(e.stdin, msg)
	return err
}

func (e *Engine) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := e.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
