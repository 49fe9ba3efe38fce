package personalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/feedkit/core"
)

// ProfileSnapshot 把聚类分配持久化到 KV 存储：进程重启后直接恢复
// 上一轮刷新的分配，不必空转到下一个刷新周期。
//
// 存储布局：
//   - {prefix}:index → 全部 viewer ID 的 JSON 数组
//   - {prefix}:{viewerID} → 单个画像的 JSON
//
// Save 先批量写画像、最后覆盖索引：索引指到的画像一定已经写完。
type ProfileSnapshot struct {
	Store core.Store

	// KeyPrefix 默认 "cluster:profiles"
	KeyPrefix string
}

const defaultSnapshotPrefix = "cluster:profiles"

func (s *ProfileSnapshot) indexKey() string {
	return s.prefix() + ":index"
}

func (s *ProfileSnapshot) profileKey(viewerID int64) string {
	return s.prefix() + ":" + strconv.FormatInt(viewerID, 10)
}

func (s *ProfileSnapshot) prefix() string {
	if s.KeyPrefix != "" {
		return s.KeyPrefix
	}
	return defaultSnapshotPrefix
}

// Save 写入全量快照。
func (s *ProfileSnapshot) Save(ctx context.Context, profiles map[int64]ClusterProfile) error {
	ids := make([]int64, 0, len(profiles))
	kvs := make(map[string][]byte, len(profiles))
	for id, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile %d: %w", id, err)
		}
		ids = append(ids, id)
		kvs[s.profileKey(id)] = data
	}

	if len(kvs) > 0 {
		if err := s.Store.BatchSet(ctx, kvs); err != nil {
			return fmt.Errorf("snapshot profiles: %w", err)
		}
	}

	index, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal snapshot index: %w", err)
	}
	if err := s.Store.Set(ctx, s.indexKey(), index); err != nil {
		return fmt.Errorf("snapshot index: %w", err)
	}
	return nil
}

// Load 读取快照；从未保存过快照时返回 nil 映射（不是错误）。
// 索引指到但缺失/损坏的画像按未分配处理（Profile 会回退到兜底画像）。
func (s *ProfileSnapshot) Load(ctx context.Context) (map[int64]ClusterProfile, error) {
	data, err := s.Store.Get(ctx, s.indexKey())
	if core.IsStoreNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot index: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse snapshot index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.profileKey(id)
	}
	kvs, err := s.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("snapshot profiles: %w", err)
	}

	profiles := make(map[int64]ClusterProfile, len(ids))
	for _, id := range ids {
		raw, ok := kvs[s.profileKey(id)]
		if !ok {
			continue
		}
		var p ClusterProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		profiles[id] = p
	}
	return profiles, nil
}
