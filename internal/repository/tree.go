package repository

import (
	"sort"

	"github.com/Guyuepp/go-comment-service/domain"
)

func newerFirst(a, b *domain.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// BuildCommentTree assembles a flat parent-pointer list into reply trees.
//
// Every level is ordered newest first. A comment whose parent is not in the
// list (or is itself) becomes a root. Comments caught in a parent cycle are
// unreachable from any root; the newest unvisited one is promoted to a root
// and its cycle is cut there. Each input comment appears exactly once.
func BuildCommentTree(comments []domain.Comment) []*domain.CommentNode {
	ordered := make([]*domain.CommentNode, 0, len(comments))
	nodes := make(map[string]*domain.CommentNode, len(comments))
	for i := range comments {
		if _, dup := nodes[comments[i].ID]; dup {
			continue
		}
		n := &domain.CommentNode{Comment: comments[i], Replies: []*domain.CommentNode{}}
		nodes[n.ID] = n
		ordered = append(ordered, n)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return newerFirst(&ordered[i].Comment, &ordered[j].Comment)
	})

	roots := make([]*domain.CommentNode, 0)
	children := make(map[string][]*domain.CommentNode)
	for _, n := range ordered {
		if n.ParentID == nil || *n.ParentID == n.ID {
			roots = append(roots, n)
			continue
		}
		if _, ok := nodes[*n.ParentID]; !ok {
			// 孤儿回复：父评论不在结果集中，提升为根
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	visited := make(map[string]bool, len(ordered))
	var attach func(n *domain.CommentNode)
	attach = func(n *domain.CommentNode) {
		visited[n.ID] = true
		for _, child := range children[n.ID] {
			if visited[child.ID] {
				continue
			}
			n.Replies = append(n.Replies, child)
			attach(child)
		}
	}
	for _, root := range roots {
		attach(root)
	}

	promoted := false
	for _, n := range ordered {
		if !visited[n.ID] {
			roots = append(roots, n)
			attach(n)
			promoted = true
		}
	}
	if promoted {
		sort.SliceStable(roots, func(i, j int) bool {
			return newerFirst(&roots[i].Comment, &roots[j].Comment)
		})
	}

	return roots
}

// FlattenCommentTree walks the forest depth-first, parents before replies
func FlattenCommentTree(roots []*domain.CommentNode) []domain.Comment {
	res := make([]domain.Comment, 0)
	var walk func(nodes []*domain.CommentNode)
	walk = func(nodes []*domain.CommentNode) {
		for _, n := range nodes {
			res = append(res, n.Comment)
			walk(n.Replies)
		}
	}
	walk(roots)
	return res
}
