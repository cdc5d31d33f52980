package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryService 论坛分类服务，分类不通过接口删除
type CategoryService struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewCategoryService 创建分类服务实例
func NewCategoryService(db *gorm.DB, log *zap.SugaredLogger) *CategoryService {
	return &CategoryService{db: db, logger: log}
}

// Create 创建分类
func (s *CategoryService) Create(ctx context.Context, req *dto.CategoryCreateRequest) (*model.ForumCategory, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	slug := slugify(req.Slug, 80)
	if strings.TrimSpace(req.Slug) == "" {
		slug = slugify(name, 80)
	}
	if slug == "" {
		return nil, errcode.FieldError("slug", "无法根据名称生成slug，请手动指定")
	}

	category := &model.ForumCategory{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		IsActive:    true,
		OrderIndex:  req.OrderIndex,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 检查分类名或slug是否已存在
		var count int64
		if err := tx.Model(&model.ForumCategory{}).Where("name = ? OR slug = ?", name, slug).Count(&count).Error; err != nil {
			return errors.Wrap(err, "检查分类失败")
		}
		if count > 0 {
			return errcode.NewConflict("分类名称或slug已存在").WithCode(errcode.DuplicateSlug)
		}
		if err := tx.Create(category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errcode.NewConflict("分类名称或slug已存在").WithCode(errcode.DuplicateSlug)
			}
			return errors.Wrap(err, "创建分类失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("创建论坛分类: %s (%s)", category.Name, category.Slug)
	return category, nil
}

// List 分类列表，按orderIndex升序
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]model.ForumCategory, error) {
	query := s.db.WithContext(ctx).Model(&model.ForumCategory{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	categories := make([]model.ForumCategory, 0)
	if err := query.Order("order_index ASC").Order("id ASC").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "查询分类列表失败")
	}
	return categories, nil
}

// GetBySlug 根据slug获取分类
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*model.ForumCategory, error) {
	var category model.ForumCategory
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, dbError(err, "分类不存在", "查询分类失败")
	}
	return &category, nil
}

// Resolve 接受数字ID或slug，纯数字slug在ID不存在时按slug查找
func (s *CategoryService) Resolve(ctx context.Context, idOrSlug string) (*model.ForumCategory, error) {
	id, err := strconv.ParseUint(idOrSlug, 10, 64)
	if err != nil {
		return s.GetBySlug(ctx, idOrSlug)
	}
	var category model.ForumCategory
	err = s.db.WithContext(ctx).First(&category, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, dbError(err, "分类不存在", "查询分类失败")
	}
	return &category, nil
}
