package room

import (
	"fmt"
	"strings"
)

// Wire semantics live here, not in pkg/transport. A transport's only job
// is to get a text line from one process's socket into another's mailbox
// byte-for-byte; interpreting the protocol vocabulary defined in the
// spec's wire section is core protocol logic, and room is where every
// other piece of that logic already lives.

// DecodeWireLine turns one received line, tagged with the id of the peer
// it arrived from, into a room Message. Unrecognized verbs are reported
// as an error rather than silently dropped, so a transport can log them.
func DecodeWireLine(from string, line string) (Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("room: empty wire line from %s", from)
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "add":
		if len(args) != 2 {
			return nil, fmt.Errorf("room: malformed add from %s: %q", from, line)
		}
		return AddSong{Name: args[0], URL: args[1]}, nil

	case "delete":
		if len(args) != 1 {
			return nil, fmt.Errorf("room: malformed delete from %s: %q", from, line)
		}
		return DeleteSong{Name: args[0]}, nil

	case "get":
		if len(args) != 1 {
			return nil, fmt.Errorf("room: malformed get from %s: %q", from, line)
		}
		return GetSong{Name: args[0]}, nil

	case "fullstaterequest-master":
		return RequestFullState{}, nil

	case "heartbeat":
		if len(args) != 2 {
			return nil, fmt.Errorf("room: malformed heartbeat from %s: %q", from, line)
		}
		role, err := ParseRole(args[0])
		if err != nil {
			return nil, err
		}
		return WireHeartbeat{From: args[1], Role: role}, nil

	case "votereq":
		if len(args) < 1 {
			return nil, fmt.Errorf("room: malformed votereq from %s: %q", from, line)
		}
		u, err := decodeUpdate(args)
		if err != nil {
			return nil, err
		}
		return WireVoteReq{From: from, Update: u}, nil

	case "votereply":
		if len(args) != 1 {
			return nil, fmt.Errorf("room: malformed votereply from %s: %q", from, line)
		}
		switch args[0] {
		case "yes":
			return WireVoteReply{From: from, Vote: VoteYes}, nil
		case "no":
			return WireVoteReply{From: from, Vote: VoteNo}, nil
		default:
			return nil, fmt.Errorf("room: unknown votereply %q from %s", args[0], from)
		}

	case "precommit":
		return WirePreCommit{From: from}, nil

	case "ackprecommit":
		return WireAckPreCommit{From: from}, nil

	case "commit":
		return WireCommit{From: from}, nil

	case "abort":
		return WireAbort{From: from}, nil

	case "statereq":
		return WireStateReq{From: from}, nil

	case "state":
		if len(args) != 1 {
			return nil, fmt.Errorf("room: malformed state from %s: %q", from, line)
		}
		cs, err := ParseCommitState(args[0])
		if err != nil {
			return nil, err
		}
		return WireStateReqReply{From: from, State: cs}, nil

	case "fullstaterequest":
		return WireFullStateRequest{From: from}, nil

	case "songlist":
		songs, err := decodeSongList(args)
		if err != nil {
			return nil, err
		}
		return WireFullStateReply{From: from, SongList: songs}, nil

	default:
		return nil, fmt.Errorf("room: unknown wire verb %q from %s", verb, from)
	}
}

func decodeUpdate(args []string) (Update, error) {
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return Update{}, fmt.Errorf("room: malformed add update: %v", args)
		}
		return Update{Kind: UpdateAdd, Name: args[1], URL: args[2]}, nil
	case "delete":
		if len(args) != 2 {
			return Update{}, fmt.Errorf("room: malformed delete update: %v", args)
		}
		return Update{Kind: UpdateDelete, Name: args[1]}, nil
	default:
		return Update{}, fmt.Errorf("room: unknown update verb %q", args[0])
	}
}

// encodeSongList packs a songlist snapshot into a single "songlist" line:
// pairs of name/url tokens, url replaced with "-" if empty. This is the
// one full-state wire format, used both peer-to-peer (catch-up) and in
// the coordinator's reply to a master fullstate request.
func encodeSongList(songs map[string]string) string {
	var b strings.Builder
	b.WriteString("songlist")
	for name, url := range songs {
		if url == "" {
			url = "-"
		}
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(" ")
		b.WriteString(url)
	}
	return b.String()
}

func decodeSongList(args []string) (map[string]string, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("room: malformed songlist payload: %v", args)
	}
	out := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		url := args[i+1]
		if url == "-" {
			url = ""
		}
		out[args[i]] = url
	}
	return out, nil
}
