package models

// Relationship is the four-valued classification of the follow edges
// between a viewing user and a target user.
type Relationship string

const (
	// RelationshipNone means neither user follows the other.
	RelationshipNone Relationship = "none"
	// RelationshipFollowing means the viewer follows the target only.
	RelationshipFollowing Relationship = "following"
	// RelationshipFollower means the target follows the viewer only.
	RelationshipFollower Relationship = "follower"
	// RelationshipFriends means both edges exist.
	RelationshipFriends Relationship = "friends"
)

// Valid reports whether r is one of the four known tags.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipNone, RelationshipFollowing, RelationshipFollower, RelationshipFriends:
		return true
	}
	return false
}

// ViewerFollowsTarget reports the forward-edge bit encoded in the tag.
func (r Relationship) ViewerFollowsTarget() bool {
	return r == RelationshipFollowing || r == RelationshipFriends
}

// TargetFollowsViewer reports the reverse-edge bit encoded in the tag.
func (r Relationship) TargetFollowsViewer() bool {
	return r == RelationshipFollower || r == RelationshipFriends
}

// ClassifyRelationship derives the tag from the presence of each edge.
func ClassifyRelationship(viewerFollowsTarget, targetFollowsViewer bool) Relationship {
	switch {
	case viewerFollowsTarget && targetFollowsViewer:
		return RelationshipFriends
	case viewerFollowsTarget:
		return RelationshipFollowing
	case targetFollowsViewer:
		return RelationshipFollower
	default:
		return RelationshipNone
	}
}

// OptimisticAfterFollow is the tag assumed locally after a successful
// follow, before any authoritative re-read.
func OptimisticAfterFollow(prior Relationship) Relationship {
	if prior == RelationshipFollower {
		return RelationshipFriends
	}
	return RelationshipFollowing
}

// OptimisticAfterUnfollow is the tag assumed locally after a successful
// unfollow. It is always none, even when the prior tag was friends and
// the target may still follow the viewer; the delayed reconciliation
// read corrects that case.
func OptimisticAfterUnfollow(Relationship) Relationship {
	return RelationshipNone
}

// DeriveReverseGuess speculates what the (target, viewer) tag looks like
// after the viewer's edge changed to newForward. Best-effort, not
// authoritative: it can diverge from server truth if the other party
// mutates their own edge concurrently.
//
// When newForward still encodes both edge bits the guess is exact. An
// optimistic newForward of none is lossy (unfollow collapses friends to
// none), so the prior reverse tag supplies the missing bit.
func DeriveReverseGuess(newForward, priorReverse Relationship) Relationship {
	switch newForward {
	case RelationshipFriends:
		return RelationshipFriends
	case RelationshipFollowing:
		return RelationshipFollower
	case RelationshipFollower:
		return RelationshipFollowing
	}

	// newForward == none: keep only the "target follows viewer" bit,
	// which from the reverse perspective is the forward bit.
	if priorReverse == RelationshipFriends || priorReverse == RelationshipFollowing {
		return RelationshipFollowing
	}
	return RelationshipNone
}
