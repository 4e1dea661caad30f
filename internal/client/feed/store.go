// Package feed holds the client's feed state and the optimistic
// reconciliation of tentative entities against server-confirmed ones.
//
// The store is the single source of truth: every view (inline previews, the
// all-comments panel) reads snapshots derived from it, so a reconciliation
// mutates exactly one place and readers can never observe a tentative entity
// in one view but not another.
package feed

import (
	"sync"

	"github.com/dkravets/kitafeed/internal/client/models"
)

// Store is the normalized feed state: posts, comments and tickets keyed by
// id, with explicit ordering slices.
type Store struct {
	mu sync.RWMutex

	posts     map[string]*models.Post
	postOrder []string

	comments     map[string]*models.Comment
	commentOrder map[string][]string // post id → comment ids

	tickets map[string]*models.Ticket
}

func NewStore() *Store {
	return &Store{
		posts:        make(map[string]*models.Post),
		comments:     make(map[string]*models.Comment),
		commentOrder: make(map[string][]string),
		tickets:      make(map[string]*models.Ticket),
	}
}

// SetPosts replaces the feed contents.
func (s *Store) SetPosts(posts []models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = make(map[string]*models.Post, len(posts))
	s.postOrder = s.postOrder[:0]
	for i := range posts {
		p := posts[i]
		s.posts[p.ID] = &p
		s.postOrder = append(s.postOrder, p.ID)
	}
}

// Posts returns the feed in order.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		if p, ok := s.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Post returns a snapshot of one post.
func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return models.Post{}, false
	}
	return *p, true
}

// AddPost prepends a post to the feed.
func (s *Store) AddPost(post models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = &post
	s.postOrder = append([]string{post.ID}, s.postOrder...)
}

// RemovePost drops a post and its comments.
func (s *Store) RemovePost(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.posts, id)
	for i, pid := range s.postOrder {
		if pid == id {
			s.postOrder = append(s.postOrder[:i], s.postOrder[i+1:]...)
			break
		}
	}
	for _, cid := range s.commentOrder[id] {
		delete(s.comments, cid)
	}
	delete(s.commentOrder, id)
}

// SetPostText updates a post's text and returns the previous value.
func (s *Store) SetPostText(id, text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return "", false
	}
	prev := p.Text
	p.Text = text
	return prev, true
}

// AppendMedia attaches media to a post.
func (s *Store) AppendMedia(postID string, medias ...models.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.Media = append(p.Media, medias...)
	}
}

// RemoveMedia detaches one media from a post.
func (s *Store) RemoveMedia(postID, mediaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return
	}
	for i, m := range p.Media {
		if m.ID == mediaID {
			p.Media = append(p.Media[:i], p.Media[i+1:]...)
			return
		}
	}
}

// SetComments replaces the comment list of a post.
func (s *Store) SetComments(postID string, comments []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cid := range s.commentOrder[postID] {
		delete(s.comments, cid)
	}
	order := make([]string, 0, len(comments))
	for i := range comments {
		c := comments[i]
		s.comments[c.ID] = &c
		order = append(order, c.ID)
	}
	s.commentOrder[postID] = order
}

// Comments returns a post's comments in order. Every view of the post's
// comments derives from this one snapshot.
func (s *Store) Comments(postID string) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0, len(s.commentOrder[postID]))
	for _, cid := range s.commentOrder[postID] {
		if c, ok := s.comments[cid]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// AddComment appends a comment and bumps the post's comment count.
func (s *Store) AddComment(comment models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comments[comment.ID] = &comment
	s.commentOrder[comment.PostID] = append(s.commentOrder[comment.PostID], comment.ID)
	if p, ok := s.posts[comment.PostID]; ok {
		p.CommentCount++
	}
}

// ReplaceComment swaps a tentative comment for its server-confirmed version,
// keeping its position.
func (s *Store) ReplaceComment(tentativeID string, confirmed models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.comments[tentativeID]
	if !ok {
		return
	}
	delete(s.comments, tentativeID)
	s.comments[confirmed.ID] = &confirmed

	order := s.commentOrder[old.PostID]
	for i, cid := range order {
		if cid == tentativeID {
			order[i] = confirmed.ID
			break
		}
	}
}

// RemoveComment drops a comment and decrements the post's comment count.
func (s *Store) RemoveComment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return
	}
	delete(s.comments, id)

	order := s.commentOrder[c.PostID]
	for i, cid := range order {
		if cid == id {
			s.commentOrder[c.PostID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	if p, ok := s.posts[c.PostID]; ok && p.CommentCount > 0 {
		p.CommentCount--
	}
}

// TakeComment removes a comment and returns it with its former position,
// so a failed delete can put it back where it was.
func (s *Store) TakeComment(id string) (models.Comment, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return models.Comment{}, 0, false
	}
	taken := *c
	delete(s.comments, id)

	index := 0
	order := s.commentOrder[c.PostID]
	for i, cid := range order {
		if cid == id {
			index = i
			s.commentOrder[c.PostID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	if p, ok := s.posts[c.PostID]; ok && p.CommentCount > 0 {
		p.CommentCount--
	}
	return taken, index, true
}

// RestoreComment reinserts a taken comment at its former position.
func (s *Store) RestoreComment(comment models.Comment, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comments[comment.ID] = &comment
	order := s.commentOrder[comment.PostID]
	if index < 0 || index > len(order) {
		index = len(order)
	}
	order = append(order[:index], append([]string{comment.ID}, order[index:]...)...)
	s.commentOrder[comment.PostID] = order
	if p, ok := s.posts[comment.PostID]; ok {
		p.CommentCount++
	}
}

// SetLiked sets the liked flag and adjusts the like count accordingly.
// It returns the previous flag.
func (s *Store) SetLiked(postID string, liked bool) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return false, false
	}
	prev := p.Liked
	if prev == liked {
		return prev, true
	}
	p.Liked = liked
	if liked {
		p.LikeCount++
	} else if p.LikeCount > 0 {
		p.LikeCount--
	}
	return prev, true
}

// SetTickets replaces the known tickets.
func (s *Store) SetTickets(tickets []models.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = make(map[string]*models.Ticket, len(tickets))
	for i := range tickets {
		t := tickets[i]
		s.tickets[t.ID] = &t
	}
}

// Ticket returns a snapshot of one ticket.
func (s *Store) Ticket(id string) (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, false
	}
	return *t, true
}

// SetTicketStatus updates a ticket's status and returns the previous value.
func (s *Store) SetTicketStatus(id, status string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return "", false
	}
	prev := t.Status
	t.Status = status
	return prev, true
}
