package command

import "strings"

// Kind classifies a canonicalised command into the family that handles it.
type Kind string

const (
	KindUnknown Kind = "unknown"

	KindHelp       Kind = "help"
	KindQuit       Kind = "quit"
	KindQuitForce  Kind = "quit!"
	KindWrite      Kind = "write"
	KindWriteQuit  Kind = "wq"
	KindAdd        Kind = "add"
	KindRefresh    Kind = "refresh"
	KindRemoveFeed Kind = "remove-feed"

	KindEngine      Kind = "engine"
	KindOPML        Kind = "opml"
	KindSearch      Kind = "search"
	KindSeek        Kind = "seek"
	KindVol         Kind = "vol"
	KindSpeed       Kind = "speed"
	KindGoto        Kind = "goto"
	KindSort        Kind = "sort"
	KindFilter      Kind = "filter"
	KindFeed        Kind = "feed"
	KindHistory     Kind = "history"
	KindNet         Kind = "net"
	KindPlaySource  Kind = "play-source"
	KindAudioPlayer Kind = "audioplayer"
	KindTheme       Kind = "theme"
	KindLogs        Kind = "logs"
	KindOSD         Kind = "osd"
	KindJump        Kind = "jump"
	KindReplay      Kind = "replay"
	KindSave        Kind = "save"
	KindSync        Kind = "sync"
	KindOpen        Kind = "open"
	KindCopy        Kind = "copy"
	KindQueue       Kind = "queue"
)

// Command is a fully tokenized, canonicalised, classified command-mode
// input, ready for dispatch.
type Command struct {
	Kind Kind
	Args []string
	Raw  string
}

// aliasMap canonicalises shorthand spellings to their full ":name" form,
// before kind classification runs. Lookups are case-insensitive; keys are
// lower-case.
var aliasMap = map[string]string{
	":h":       ":help",
	":q":       ":quit",
	":q!":      ":quit!",
	":w":       ":write",
	":x":       ":wq",
	":a":       ":add",
	":r":       ":refresh",
	":rm-feed": ":remove-feed",
}

// exactKindMap handles full command names that do not take a family of
// sub-forms.
var exactKindMap = map[string]Kind{
	":help":        KindHelp,
	":quit":        KindQuit,
	":quit!":       KindQuitForce,
	":write":       KindWrite,
	":wq":          KindWriteQuit,
	":add":         KindAdd,
	":refresh":     KindRefresh,
	":remove-feed": KindRemoveFeed,
}

// prefixKindMap handles command families, matched by their ":name" prefix
// once the first token is lower-cased.
var prefixKindMap = map[string]Kind{
	":engine":      KindEngine,
	":opml":        KindOPML,
	":search":      KindSearch,
	":seek":        KindSeek,
	":vol":         KindVol,
	":speed":       KindSpeed,
	":goto":        KindGoto,
	":sort":        KindSort,
	":filter":      KindFilter,
	":feed":        KindFeed,
	":history":     KindHistory,
	":net":         KindNet,
	":play-source": KindPlaySource,
	":audioplayer": KindAudioPlayer,
	":theme":       KindTheme,
	":logs":        KindLogs,
	":osd":         KindOSD,
	":jump":        KindJump,
	":replay":      KindReplay,
	":save":        KindSave,
	":sync":        KindSync,
	":open":        KindOpen,
	":copy":        KindCopy,
	":queue":       KindQueue,
}

// Canonicalize prepends ":" to the first token if missing, lower-cases it,
// and resolves it through aliasMap. It does not touch args.
func Canonicalize(first string) string {
	lower := strings.ToLower(first)
	if !strings.HasPrefix(lower, ":") {
		lower = ":" + lower
	}
	if full, ok := aliasMap[lower]; ok {
		return full
	}
	return lower
}

// Classify maps a canonicalised first token to a Kind: exact match first,
// then longest-prefix family match, else KindUnknown.
func Classify(canonical string) Kind {
	if k, ok := exactKindMap[canonical]; ok {
		return k
	}
	if k, ok := prefixKindMap[canonical]; ok {
		return k
	}
	for prefix, k := range prefixKindMap {
		if strings.HasPrefix(canonical, prefix) {
			return k
		}
	}
	return KindUnknown
}

// Parse tokenizes, canonicalises, and classifies raw input into a Command.
// An empty (all-whitespace) input returns KindUnknown with no args.
func Parse(raw string) Command {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return Command{Kind: KindUnknown, Raw: raw}
	}
	canonical := Canonicalize(tokens[0])
	return Command{
		Kind: Classify(canonical),
		Args: tokens[1:],
		Raw:  raw,
	}
}
