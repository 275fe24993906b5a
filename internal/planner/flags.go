// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package planner

// ordinarySendFlags, resumeSendFlags, bookmarkSendFlags and recvFlags
// are the single-character zfs
// send/receive flags this tool passes through from the user-supplied
// --send-options/--recv-options strings, narrowed per scenario. Options
// arrive as opaque strings rather than a typed config struct, so
// filtering happens over raw flag letters.
var (
	ordinarySendFlags  = "Lcehpv"
	resumeSendFlags    = "" // a resumed send takes no flags beyond -t
	bookmarkSendFlags  = "Lcehpv"
	recvFlags          = "hoxuv"
)

// FilterSendFlags keeps only the letters in allowed from raw (each
// expected to be a single '-' prefixed short flag, e.g. "-L"), per the
// scenario determined by the caller (resume / bookmark-sourced /
// ordinary send).
func FilterSendFlags(raw []string, resuming, fromBookmark bool) []string {
	allowed := ordinarySendFlags
	if resuming {
		allowed = resumeSendFlags
	} else if fromBookmark {
		allowed = bookmarkSendFlags
	}
	return filterFlags(raw, allowed)
}

// FilterRecvFlags keeps only the letters in recvFlags, always (receive
// filters to the h,o,x,u,v set unconditionally). resumable and
// rollbackOK add -s and -F respectively when the caller enables them,
// independent of what the user supplied.
func FilterRecvFlags(raw []string, resumable, rollbackOK bool) []string {
	out := filterFlags(raw, recvFlags)
	if resumable {
		out = append(out, "-s")
	}
	if rollbackOK {
		out = append(out, "-F")
	}
	return out
}

func filterFlags(raw []string, allowedLetters string) []string {
	out := make([]string, 0, len(raw))
	for _, flag := range raw {
		letter := stripDash(flag)
		if letter == "" {
			continue
		}
		if containsByte(allowedLetters, letter[0]) {
			out = append(out, flag)
		}
	}
	return out
}

func stripDash(flag string) string {
	i := 0
	for i < len(flag) && flag[i] == '-' {
		i++
	}
	return flag[i:]
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
