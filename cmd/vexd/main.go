// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/config"
	"github.com/uzqw/vex/internal/engine"
	"github.com/uzqw/vex/internal/protocol"
	"github.com/uzqw/vex/internal/vfs"
	"github.com/uzqw/vex/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file (optional)")
	showVer    = flag.Bool("version", false, "Show version and exit")

	eng *engine.Engine
	log *logger.Logger

	// Version is set at build time via ldflags.
	Version = "dev"
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vexd version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vexd: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	format := logger.FormatText
	if strings.ToLower(cfg.Log.Format) == "json" {
		format = logger.FormatJSON
	}
	log = logger.New(logger.Config{Format: format, Level: level})

	dir, err := vfs.NewNative(cfg.Store.DataDir)
	if err != nil {
		log.Error("failed to open data directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dir.Close()

	eng, err = engine.New(dir, cfg.EngineConfig())
	if err != nil {
		log.Error("failed to build engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting vexd", slog.String("addr", addr), slog.String("data_dir", cfg.Store.DataDir))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to start listener", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("shutting down vexd")
				return
			default:
				log.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}
		}

		eng.Stats().IncrementActiveConnections()
		go handleConnection(ctx, conn)
	}
}

func handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		eng.Stats().DecrementActiveConnections()
	}()

	requestID := uuid.New().String()
	connLog := log.WithRequestID(ctx, requestID)
	connLog.Info("new connection", slog.String("remote", conn.RemoteAddr().String()))

	reader := protocol.NewRESPReader(conn)
	writer := protocol.NewRESPWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				connLog.Debug("connection closed")
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				connLog.Info("connection timeout")
				return
			}
			connLog.Warn("protocol error", slog.String("error", err.Error()))
			_ = writer.WriteError(err.Error())
			_ = writer.Flush()
			return
		}

		if len(cmd) == 0 {
			continue
		}

		start := time.Now()
		processCommand(connLog, writer, cmd)
		connLog.Debug("command executed",
			slog.String("cmd", cmd[0]),
			slog.Int("args", len(cmd)-1),
			slog.Duration("latency", time.Since(start)),
		)

		if err := writer.Flush(); err != nil {
			connLog.Error("failed to flush response", slog.String("error", err.Error()))
			return
		}
	}
}

func processCommand(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	command := strings.ToUpper(cmd[0])

	switch command {
	case "PING":
		handlePing(writer, cmd)
	case "ECHO":
		handleEcho(writer, cmd)
	case "VINSERT":
		handleVInsert(log, writer, cmd)
	case "VSEARCH":
		handleVSearch(log, writer, cmd)
	case "VSTATS", "STATS", "INFO":
		handleStats(writer)
	case "VCLEAR", "CLEAR":
		handleClear(writer)
	case "QUIT":
		_ = writer.WriteSimpleString("OK")
	default:
		_ = writer.WriteError(fmt.Sprintf("unknown command '%s'", command))
	}
}

func handlePing(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) == 1 {
		_ = writer.WriteSimpleString("PONG")
	} else {
		_ = writer.WriteBulkString(cmd[1])
	}
}

func handleEcho(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'echo' command")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

// handleVInsert handles VINSERT text vector [tag ...], e.g.:
//
//	VINSERT "hello there" "[0.1, 0.2, 0.3]" greetings formal
func handleVInsert(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vinsert' command")
		return
	}

	text, vectorStr, tags := cmd[1], cmd[2], cmd[3:]

	vector, err := protocol.FastVectorParser(vectorStr)
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	if _, err := eng.InsertOne(engine.Item{Text: text, Vector: vector}, tags); err != nil {
		log.Warn("insert failed", slog.String("error", err.Error()))
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteSimpleString("OK")
}

// handleVSearch handles VSEARCH vector k [tag ...], e.g.:
//
//	VSEARCH "[0.1, 0.2, 0.3]" 5 greetings
func handleVSearch(log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vsearch' command")
		return
	}

	vectorStr := cmd[1]
	topN, err := strconv.Atoi(cmd[2])
	if err != nil || topN <= 0 {
		_ = writer.WriteError("k must be a positive integer")
		return
	}
	tags := cmd[3:]

	query, err := protocol.FastVectorParser(vectorStr)
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	results, err := eng.Search(query, tags, topN)
	if err != nil {
		log.Warn("search failed", slog.String("error", err.Error()))
		_ = writer.WriteError(err.Error())
		return
	}

	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("%s\x1f%s\x1f%.6f", r.ID, r.Text, r.Similarity)
	}
	_ = writer.WriteArray(lines)
}

func handleStats(writer *protocol.RESPWriter) {
	jsonStr, err := eng.Stats().JSON()
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteBulkString(jsonStr)
}

func handleClear(writer *protocol.RESPWriter) {
	if err := eng.Clear(); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteSimpleString("OK")
}
