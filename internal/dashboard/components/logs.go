package components

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agorascan/agorascan-node/internal/dashboard/styles"
)

// LogViewer는 로그 파일 뷰어
type LogViewer struct {
	logPathBase string // logger writes <base>_YYYY-MM-DD.log
	lines       []LogLine
	maxLines    int
	lastModTime time.Time
}

// LogLine은 파싱된 로그 라인
type LogLine struct {
	Time    string
	Level   string
	Message string
	Raw     string
}

// NewLogViewer는 새 로그 뷰어 생성
func NewLogViewer(logPathBase string, maxLines int) *LogViewer {
	return &LogViewer{
		logPathBase: logPathBase,
		maxLines:    maxLines,
		lines:       make([]LogLine, 0),
	}
}

// GetLogPath는 오늘자 로그 파일 경로 반환
func (lv *LogViewer) GetLogPath() string {
	today := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.log", lv.logPathBase, today)
}

// Refresh는 로그 파일을 다시 읽음
func (lv *LogViewer) Refresh() error {
	logPath := lv.GetLogPath()

	info, err := os.Stat(logPath)
	if err != nil {
		lv.lines = []LogLine{{
			Level:   "INFO",
			Message: fmt.Sprintf("no log file: %s", logPath),
		}}
		return nil
	}

	// 수정 시간이 같으면 스킵
	if info.ModTime().Equal(lv.lastModTime) {
		return nil
	}
	lv.lastModTime = info.ModTime()

	file, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var allLines []LogLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		allLines = append(allLines, lv.parseLine(scanner.Text()))
	}

	// 마지막 maxLines만 유지
	if len(allLines) > lv.maxLines {
		allLines = allLines[len(allLines)-lv.maxLines:]
	}

	lv.lines = allLines
	return nil
}

// parseLine은 로그 라인을 파싱
func (lv *LogViewer) parseLine(line string) LogLine {
	// JSON 로그 파싱 시도
	// {"date":"2025-01-03T12:00:00Z","level":"INFO","msg":"info","Info":"message"}

	result := LogLine{Raw: line}

	if strings.Contains(line, `"level":"DEBUG"`) {
		result.Level = "DEBUG"
	} else if strings.Contains(line, `"level":"INFO"`) {
		result.Level = "INFO"
	} else if strings.Contains(line, `"level":"WARN"`) {
		result.Level = "WARN"
	} else if strings.Contains(line, `"level":"ERROR"`) {
		result.Level = "ERROR"
	} else {
		result.Level = "INFO"
	}

	// 시간 추출
	if idx := strings.Index(line, `"date":"`); idx != -1 {
		start := idx + 8
		end := strings.Index(line[start:], `"`)
		if end > 0 {
			dateStr := line[start : start+end]
			if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
				result.Time = t.Format("15:04:05")
			} else {
				result.Time = dateStr
			}
		}
	}

	// 메시지 추출
	for _, key := range []string{`"Info":"`, `"Debug":"`, `"Warn":"`, `"Err":"`} {
		if idx := strings.Index(line, key); idx != -1 {
			start := idx + len(key)
			end := strings.Index(line[start:], `"`)
			if end > 0 {
				result.Message = line[start : start+end]
				break
			}
		}
	}

	if result.Message == "" {
		result.Message = line
		if len(result.Message) > 80 {
			result.Message = result.Message[:80] + "..."
		}
	}

	return result
}

// GetLines는 현재 로그 라인들 반환
func (lv *LogViewer) GetLines() []LogLine {
	return lv.lines
}

// Render는 로그 뷰어를 문자열로 렌더링
func (lv *LogViewer) Render(width int) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("LOGS"))
	b.WriteString("\n")

	if len(lv.lines) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no log lines"))
		return b.String()
	}

	for _, line := range lv.lines {
		levelStyle := styles.LogLevelStyle(line.Level)

		timeStr := line.Time
		if timeStr == "" {
			timeStr = "        "
		}

		levelStr := fmt.Sprintf("%-5s", line.Level)

		msg := line.Message
		maxMsgLen := width - 20
		if maxMsgLen < 20 {
			maxMsgLen = 20
		}
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen] + "..."
		}

		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			styles.MutedStyle.Render(timeStr),
			levelStyle.Render(levelStr),
			msg))
	}

	return b.String()
}
