package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// SeekTarget is the result of parsing a :seek argument: either an absolute
// position or a delta to apply to the current position.
type SeekTarget struct {
	Absolute  time.Duration
	Delta     time.Duration
	IsDelta   bool
	IsPercent bool
	Percent   float64
}

// ParseSeek parses a :seek argument: "+N"/"-N" (relative seconds), "N"
// (absolute seconds), "NN%" (percent of length), "mm:ss", or "hh:mm:ss".
func ParseSeek(arg string) (SeekTarget, error) {
	if arg == "" {
		return SeekTarget{}, fmt.Errorf("seek: missing argument")
	}

	if strings.HasSuffix(arg, "%") {
		pctStr := strings.TrimSuffix(arg, "%")
		pct, err := strconv.ParseFloat(pctStr, 64)
		if err != nil {
			return SeekTarget{}, fmt.Errorf("seek: invalid percent %q", arg)
		}
		return SeekTarget{IsPercent: true, Percent: pct}, nil
	}

	if strings.Contains(arg, ":") {
		d, err := parseClock(arg)
		if err != nil {
			return SeekTarget{}, err
		}
		return SeekTarget{Absolute: d}, nil
	}

	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		secs, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return SeekTarget{}, fmt.Errorf("seek: invalid relative offset %q", arg)
		}
		return SeekTarget{IsDelta: true, Delta: secondsToDuration(secs)}, nil
	}

	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return SeekTarget{}, fmt.Errorf("seek: invalid argument %q", arg)
	}
	return SeekTarget{Absolute: secondsToDuration(secs)}, nil
}

// Resolve turns a SeekTarget into an absolute position, given the current
// position and the (possibly unknown, i.e. zero) stream length.
func (t SeekTarget) Resolve(current, length time.Duration) time.Duration {
	switch {
	case t.IsPercent:
		if length <= 0 {
			return current
		}
		target := time.Duration(float64(length) * t.Percent / 100)
		return clampDuration(target, 0, length)
	case t.IsDelta:
		target := current + t.Delta
		if length > 0 {
			return clampDuration(target, 0, length)
		}
		if target < 0 {
			return 0
		}
		return target
	default:
		if length > 0 {
			return clampDuration(t.Absolute, 0, length)
		}
		if t.Absolute < 0 {
			return 0
		}
		return t.Absolute
	}
}

func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	var nums []int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("seek: invalid clock value %q", s)
		}
		nums = append(nums, n)
	}
	var total int
	switch len(nums) {
	case 2:
		total = nums[0]*60 + nums[1]
	case 3:
		total = nums[0]*3600 + nums[1]*60 + nums[2]
	default:
		return 0, fmt.Errorf("seek: invalid clock value %q", s)
	}
	return time.Duration(total) * time.Second, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// ParseVolume parses a :vol argument: absolute 0..100 or a ±N delta
// relative to current. The result is clamped into [0, 100].
func ParseVolume(arg string, current int) (int, error) {
	if arg == "" {
		return 0, fmt.Errorf("vol: missing argument")
	}
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		delta, err := strconv.Atoi(arg)
		if err != nil {
			return 0, fmt.Errorf("vol: invalid relative value %q", arg)
		}
		return models.ClampVolume(current + delta), nil
	}
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("vol: invalid value %q", arg)
	}
	return models.ClampVolume(v), nil
}

// ParseSpeed parses a :speed argument: absolute in [0.25, 3.0] or a ±D
// delta relative to current. The result is clamped into that range.
func ParseSpeed(arg string, current float64) (float64, error) {
	if arg == "" {
		return 0, fmt.Errorf("speed: missing argument")
	}
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		delta, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("speed: invalid relative value %q", arg)
		}
		return models.ClampSpeed(current+delta, models.EngineMinSpeed, models.EngineMaxSpeed), nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("speed: invalid value %q", arg)
	}
	return models.ClampSpeed(v, models.EngineMinSpeed, models.EngineMaxSpeed), nil
}

// ParseSort parses ":sort <key> [dir]" or ":sort feeds <key> [dir]" args
// (the leading ":sort" token has already been stripped by Parse).
func ParseSort(args []string) (feeds bool, key string, dir models.SortDir, err error) {
	if len(args) == 0 {
		return false, "", "", fmt.Errorf("sort: missing key")
	}
	rest := args
	if strings.EqualFold(args[0], "feeds") {
		feeds = true
		rest = args[1:]
	}
	if len(rest) == 0 {
		return feeds, "", "", fmt.Errorf("sort: missing key")
	}
	key = strings.ToLower(rest[0])
	if feeds {
		if !models.ValidFeedSortBy(models.FeedSortBy(key)) {
			return feeds, "", "", fmt.Errorf("sort: invalid feed key %q", key)
		}
	} else {
		if !models.ValidSortBy(models.SortBy(key)) {
			return feeds, "", "", fmt.Errorf("sort: invalid key %q", key)
		}
	}
	dir = models.SortDesc
	if len(rest) > 1 {
		switch strings.ToLower(rest[1]) {
		case "asc":
			dir = models.SortAsc
		case "desc":
			dir = models.SortDesc
		default:
			return feeds, "", "", fmt.Errorf("sort: invalid direction %q", rest[1])
		}
	}
	return feeds, key, dir, nil
}

// QueueOp identifies a :queue subcommand.
type QueueOp string

const (
	QueueAdd     QueueOp = "add"
	QueueToggle  QueueOp = "toggle"
	QueueRemove  QueueOp = "rm"
	QueueClear   QueueOp = "clear"
	QueueShuffle QueueOp = "shuffle"
	QueueUniq    QueueOp = "uniq"
	QueueMove    QueueOp = "move"
)

// MoveDirection identifies where a :queue move subcommand repositions an
// entry.
type MoveDirection string

const (
	MoveUp     MoveDirection = "up"
	MoveDown   MoveDirection = "down"
	MoveTop    MoveDirection = "top"
	MoveBottom MoveDirection = "bottom"
)

// ParseQueueSub parses the :queue family's subcommand and any trailing
// argument (currently only used by "move").
func ParseQueueSub(args []string) (op QueueOp, move MoveDirection, err error) {
	if len(args) == 0 {
		return "", "", fmt.Errorf("queue: missing subcommand")
	}
	sub := strings.ToLower(args[0])
	switch sub {
	case "add":
		return QueueAdd, "", nil
	case "toggle":
		return QueueToggle, "", nil
	case "rm", "remove":
		return QueueRemove, "", nil
	case "clear":
		return QueueClear, "", nil
	case "shuffle":
		return QueueShuffle, "", nil
	case "uniq":
		return QueueUniq, "", nil
	case "move":
		if len(args) < 2 {
			return "", "", fmt.Errorf("queue: move requires a direction")
		}
		switch MoveDirection(strings.ToLower(args[1])) {
		case MoveUp, MoveDown, MoveTop, MoveBottom:
			return QueueMove, MoveDirection(strings.ToLower(args[1])), nil
		default:
			return "", "", fmt.Errorf("queue: invalid move direction %q", args[1])
		}
	default:
		return "", "", fmt.Errorf("queue: unknown subcommand %q", sub)
	}
}

// ParseVirtualFeed resolves one of the five virtual-feed keywords used by
// :feed.
func ParseVirtualFeed(arg string) (models.FeedID, error) {
	switch strings.ToLower(arg) {
	case "all":
		return models.VirtualFeedAll, nil
	case "saved":
		return models.VirtualFeedSaved, nil
	case "downloaded":
		return models.VirtualFeedDownloaded, nil
	case "history":
		return models.VirtualFeedHistory, nil
	case "queue":
		return models.VirtualFeedQueue, nil
	default:
		return models.NilID, fmt.Errorf("feed: unknown virtual feed %q", arg)
	}
}

// OPMLAction identifies which :opml operation was requested.
type OPMLAction struct {
	Import       bool
	Path         string
	UpdateTitles bool
}

// ParseOPML parses ":opml import <path> [--update-titles]" or
// ":opml export [<path>]".
func ParseOPML(args []string) (OPMLAction, error) {
	if len(args) == 0 {
		return OPMLAction{}, fmt.Errorf("opml: missing subcommand")
	}
	switch strings.ToLower(args[0]) {
	case "import":
		if len(args) < 2 {
			return OPMLAction{}, fmt.Errorf("opml: import requires a path")
		}
		act := OPMLAction{Import: true, Path: args[1]}
		for _, flag := range args[2:] {
			if flag == "--update-titles" {
				act.UpdateTitles = true
			}
		}
		return act, nil
	case "export":
		act := OPMLAction{Import: false}
		if len(args) > 1 {
			act.Path = args[1]
		}
		return act, nil
	default:
		return OPMLAction{}, fmt.Errorf("opml: unknown subcommand %q", args[0])
	}
}
