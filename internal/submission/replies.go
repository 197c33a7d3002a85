package submission

import (
	"fmt"
	"strings"
)

// User-facing replies sent back through the transport.
const (
	ReplyWelcome      = "Welcome! Send a link. Only one post per user."
	ReplyDecodeFailed = "Error processing the video. Please try again."
	ReplyAccepted     = "Video received. You are now marked as safe."
	ReplyDuplicateOwn = "You have already sent this video before!"
	ReplyConfirmed    = "Thank you! You are now marked as safe."
	ReplyReset        = "All data has been reset. You can start a new session now!"
	ReplyNoUnsafe     = "No users are in the unsafe list."
	ReplyStoreFailed  = "Could not save this video right now. Please try again later."
)

// DuplicateReply names the original submitter of a duplicate video.
func DuplicateReply(firstSubmitter string) string {
	return fmt.Sprintf("Duplicate detected! This video was first sent by %s.", firstSubmitter)
}

// UnsafeListReply renders the unsafe listing as one message. An empty
// listing produces ReplyNoUnsafe.
func UnsafeListReply(labels []string) string {
	if len(labels) == 0 {
		return ReplyNoUnsafe
	}
	return "Unsafe users: " + strings.Join(labels, ", ")
}

// TotalLinksReply reports the link counter.
func TotalLinksReply(n int) string {
	return fmt.Sprintf("Total links received: %d", n)
}

// VerdictReply maps a verdict to its reply.
func VerdictReply(v Verdict) string {
	switch v.Kind {
	case Accepted:
		return ReplyAccepted
	case DuplicateOfSelf:
		return ReplyDuplicateOwn
	case DuplicateOfOther:
		return DuplicateReply(v.FirstSubmitter.Label())
	default:
		return ReplyDecodeFailed
	}
}
