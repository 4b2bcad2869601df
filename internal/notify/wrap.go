package notify

import "unicode/utf8"

// FieldLimit is the maximum length of a Discord embed field value
const FieldLimit = 1024

// EmbedWrap splits two parallel columns into chunks whose newline-joined text
// stays within FieldLimit. Lines are never split; a chunk is flushed before the
// line that would overflow either column. A single line longer than the limit
// is emitted alone. stats must have at least len(lines) entries.
func EmbedWrap(lines, stats []string) ([]string, []string) {
	var (
		lineChunks, statChunks []string
		lineBuf, statBuf       string
		lineLen, statLen       int
		started                bool
	)

	for i, line := range lines {
		stat := stats[i]
		ll, sl := utf8.RuneCountInString(line), utf8.RuneCountInString(stat)

		if started && (lineLen+1+ll > FieldLimit || statLen+1+sl > FieldLimit) {
			lineChunks = append(lineChunks, lineBuf)
			statChunks = append(statChunks, statBuf)
			started = false
		}

		if !started {
			lineBuf, statBuf = line, stat
			lineLen, statLen = ll, sl
			started = true
			continue
		}
		lineBuf += "\n" + line
		statBuf += "\n" + stat
		lineLen += 1 + ll
		statLen += 1 + sl
	}

	if started {
		lineChunks = append(lineChunks, lineBuf)
		statChunks = append(statChunks, statBuf)
	}
	return lineChunks, statChunks
}
