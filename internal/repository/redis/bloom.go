package redis

import (
	"context"
	"hash/crc32"
	"hash/fnv"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/go-comment-service/domain"
)

const (
	KeyCommentBloom = "bloom:comment:ids"

	DefaultBloomHashes = 3
	// 每个 pipeline 最多写入的 id 数
	bloomBulkChunk = 500
)

// commentBloom is a bloom filter over comment ids kept in a single Redis
// bitmap. Offsets use double hashing: h1 + i*h2 mod size.
type commentBloom struct {
	client redis.Cmdable
	size   uint64
	hashes int
}

var _ domain.BloomRepository = (*commentBloom)(nil)

// NewCommentBloom returns a filter of bitSize bits probed by hashes
// functions. Non-positive values fall back to defaults.
func NewCommentBloom(client redis.Cmdable, bitSize uint64, hashes int) *commentBloom {
	if bitSize == 0 {
		bitSize = 1 << 24
	}
	if hashes <= 0 {
		hashes = DefaultBloomHashes
	}
	return &commentBloom{
		client: client,
		size:   bitSize,
		hashes: hashes,
	}
}

func (b *commentBloom) Add(ctx context.Context, id string) error {
	return b.BulkAdd(ctx, []string{id})
}

func (b *commentBloom) Exists(ctx context.Context, id string) (bool, error) {
	pipe := b.client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, b.hashes)
	for _, off := range b.offsets(id) {
		cmds = append(cmds, pipe.GetBit(ctx, KeyCommentBloom, int64(off)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}

// BulkAdd sets the bits of every id, flushing the pipeline in chunks
func (b *commentBloom) BulkAdd(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += bloomBulkChunk {
		end := min(start+bloomBulkChunk, len(ids))
		pipe := b.client.Pipeline()
		for _, id := range ids[start:end] {
			for _, off := range b.offsets(id) {
				pipe.SetBit(ctx, KeyCommentBloom, int64(off), 1)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *commentBloom) offsets(id string) []uint64 {
	data := []byte(id)

	h := fnv.New64a()
	h.Write(data)
	h1 := h.Sum64()
	// 奇数步长，避免 h2 为 0 时所有偏移重合
	h2 := uint64(crc32.ChecksumIEEE(data)) | 1

	res := make([]uint64, b.hashes)
	for i := range res {
		res[i] = (h1 + uint64(i)*h2) % b.size
	}
	return res
}
