package store

// Change-notice topics. Writes publish on every topic whose snapshot they
// change.
const (
	// TopicFeed changes whenever any post, reaction or comment changes.
	TopicFeed = "feed"
)

// TopicEdges changes when either side of the account's edge list changes.
func TopicEdges(accountID string) string {
	return "edges:" + accountID
}

// TopicNotifications changes when the recipient's inbox changes.
func TopicNotifications(recipientID string) string {
	return "notifications:" + recipientID
}

// TopicPost changes when the post or its reactions change, or it is deleted.
func TopicPost(postID string) string {
	return "post:" + postID
}

// TopicComments changes when a comment of the post is added or removed.
func TopicComments(postID string) string {
	return "comments:" + postID
}

// PostTopics lists the topics a post write publishes on.
func PostTopics(postID string) []string {
	return []string{TopicPost(postID), TopicFeed}
}

// CommentTopics lists the topics a comment write publishes on.
func CommentTopics(postID string) []string {
	return []string{TopicComments(postID), TopicFeed}
}
