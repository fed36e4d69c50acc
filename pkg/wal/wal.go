package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 常用檔案權限
const (
	// rw-r--r--
	FileModeDefault fs.FileMode = 0644

	// rw------- 適用於含帳務資料的日誌
	FileModePrivate fs.FileMode = 0600
)

// ErrCorrupted 日誌中間出現無法解析的紀錄
var ErrCorrupted = errors.New("wal: corrupted record")

// WAL 以 JSON Lines 格式追加寫入的預寫日誌
// 每筆 Write 在回傳前都已 fsync，回傳成功即代表已持久化
type WAL struct {
	mu   sync.Mutex
	file *os.File
	size int64
}

// Open 開啟或建立 WAL 檔案
// O_APPEND 每次寫入時自動跳到文件末尾
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &WAL{file: file, size: info.Size()}, nil
}

// Write 寫入一筆紀錄並 fsync
// 寫入失敗時截斷回寫入前的長度，避免留下半筆紀錄
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(line)
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		if n > 0 {
			if terr := w.file.Truncate(w.size); terr != nil {
				return fmt.Errorf("wal write: %w (truncate: %v)", err, terr)
			}
		}
		return fmt.Errorf("wal write: %w", err)
	}
	w.size += int64(n)
	return nil
}

// Size 目前已持久化的位元組數
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Replay 由頭依序讀出每筆紀錄交給 callback
// 結尾未以換行結束的殘缺紀錄 (寫到一半當機) 會被略過並截掉；
// 中間的損毀紀錄回傳 ErrCorrupted
func (w *WAL) Replay(callback func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	var offset int64
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				// 殘缺的尾端紀錄
				if terr := w.file.Truncate(offset); terr != nil {
					return terr
				}
				w.size = offset
			}
			return nil
		}
		if err != nil {
			return err
		}
		offset += int64(len(line))

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if !json.Valid(trimmed) {
			return fmt.Errorf("%w at line %d", ErrCorrupted, lineNo)
		}
		if err := callback(json.RawMessage(trimmed)); err != nil {
			return err
		}
	}
}
