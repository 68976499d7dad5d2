package reply

import (
	"regexp"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/dates"
)

// Instruction is one parsed administrator command. The raw source line is
// kept for audit output.
type Instruction struct {
	Token    string
	Verb     string
	Reason   string    // skip
	Date     time.Time // move
	Override string    // override
	Selector string    // selector (validated only when applied)
	Note     string    // note
	Status   string    // status
	Source   string
}

var (
	commandLinePattern = regexp.MustCompile(`^\[([A-Za-z0-9]{6,32})\]\s*(.*)$`)
	replyBreakPattern  = regexp.MustCompile(`(?i)^on\s+.*\b(wrote|說):?\s*$`)
)

// ParseBody scans an email body line by line for commands shaped
// "[TOKEN] verb remainder". Quoted lines are skipped and scanning stops
// entirely at the first quoted-reply boundary ("On ... wrote:"), so
// commands echoed back in the quoted original are never re-applied.
func ParseBody(body string) ([]Instruction, error) {
	var instructions []Instruction
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			continue
		}
		if replyBreakPattern.MatchString(line) {
			break
		}
		m := commandLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		token := strings.ToUpper(m[1])
		remainder := strings.TrimSpace(m[2])
		if remainder == "" {
			return nil, parseErrorf("missing command for token %s", token)
		}
		parts := strings.SplitN(remainder, " ", 2)
		verb := strings.ToLower(parts[0])
		tail := ""
		if len(parts) > 1 {
			tail = strings.TrimSpace(parts[1])
		}
		instruction, err := parseInstruction(token, verb, tail, line)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}

func parseInstruction(token, verb, tail, source string) (Instruction, error) {
	inst := Instruction{Token: token, Source: source}
	switch verb {
	case "keep", "ok":
		if tail != "" {
			return inst, parseErrorf("keep does not accept extra text (%s)", token)
		}
		inst.Verb = "keep"
	case "skip", "omit":
		inst.Verb = "skip"
		inst.Reason = tail
	case "move", "reschedule", "resched", "date":
		if tail == "" {
			return inst, parseErrorf("move requires ISO date (%s)", token)
		}
		target, err := dates.ParseISO(tail)
		if err != nil {
			return inst, parseErrorf("invalid ISO date %q for token %s", tail, token)
		}
		inst.Verb = "move"
		inst.Date = target
	case "override", "weekday":
		if tail == "" {
			return inst, parseErrorf("override requires descriptor (%s)", token)
		}
		inst.Verb = "override"
		inst.Override = tail
	case "selector", "sel":
		if tail == "" {
			return inst, parseErrorf("selector requires value (%s)", token)
		}
		inst.Verb = "selector"
		inst.Selector = tail
	case "note", "notes", "comment":
		if tail == "" {
			return inst, parseErrorf("note requires content (%s)", token)
		}
		inst.Verb = "note"
		inst.Note = tail
	case "status":
		if tail == "" {
			return inst, parseErrorf("status requires value (%s)", token)
		}
		inst.Verb = "status"
		inst.Status = tail
	default:
		return inst, parseErrorf("unrecognized action %q for token %s", verb, token)
	}
	return inst, nil
}
