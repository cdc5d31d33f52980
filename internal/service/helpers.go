package service

import (
	"context"
	"strings"

	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/nsxzhou1114/lms-forum-api/pkg/idgen"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 分页默认值
const (
	DefaultCommentLimit = 20
	DefaultReplyLimit   = 10
	DefaultTopicLimit   = 20
	DefaultPostLimit    = 10
	DefaultTagLimit     = 20
	MaxPageLimit        = 100
)

// normalizePage 规范化分页参数
func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}

// dbError 将记录不存在转换为NotFound，其余错误附带操作描述
func dbError(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errcode.NewNotFound(notFound)
	}
	var e *errcode.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Wrap(err, op)
}

// decrementExpr 计数器减少且不低于0
func decrementExpr(column string, n int) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", n, n)
}

// forUpdate 行锁，sqlite方言会忽略
func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// slugify 生成由小写字母数字和连字符组成的slug
func slugify(s string, maxLen int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	return out
}

// uniqueSlug 若slug已被占用则追加雪花后缀
func uniqueSlug(tx *gorm.DB, table, base string, excludeID uint) (string, error) {
	var count int64
	q := tx.Table(table).Where("slug = ?", base)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return "", errors.Wrap(err, "检查slug失败")
	}
	if count == 0 {
		return base, nil
	}
	return base + "-" + idgen.Suffix(), nil
}

// collectSubtree 收集以rootID为根的整棵回复树的ID（含根）
func collectSubtree(tx *gorm.DB, table, parentColumn string, rootID uint) ([]uint, error) {
	ids := []uint{rootID}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Table(table).Where(parentColumn+" IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, errors.Wrap(err, "查询回复失败")
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// countChildren 一次分组查询统计每个父节点的直接回复数
func countChildren(tx *gorm.DB, table, parentColumn string, parentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ParentID uint
		Total    int64
	}
	err := tx.Table(table).
		Select(parentColumn+" AS parent_id, COUNT(*) AS total").
		Where(parentColumn+" IN ?", parentIDs).
		Group(parentColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "统计回复数失败")
	}
	for _, r := range rows {
		counts[r.ParentID] = r.Total
	}
	return counts, nil
}

// publish 事务提交后投递事件，失败只记录日志
func publish(ctx context.Context, p event.Publisher, e event.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), e); err != nil {
		logger.Error("发布事件失败", zap.String("type", e.Type), zap.Uint("target_id", e.TargetID), zap.Error(err))
	}
}
