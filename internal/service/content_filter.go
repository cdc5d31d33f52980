package service

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/importcjj/sensitive"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"github.com/russross/blackfriday"
	"go.uber.org/zap"
)

// 正文长度限制，按清理后的字符数计算
const (
	MinCommentLen      = 10
	MinPostLen         = 10
	MinTopicContentLen = 20
	MaxContentLen      = 10000
)

// htmlTag 匹配HTML标签或注释，"x < 10" 这类比较符号不算
var htmlTag = regexp.MustCompile(`<(?:/?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>|!--)`)

// ContentFilter 用户内容清理：HTML白名单与敏感词替换
type ContentFilter struct {
	policy *bluemonday.Policy
	filter *sensitive.Filter
}

// NewContentFilter 创建内容过滤器，词典文件每行一个Base64编码的敏感词
func NewContentFilter(cfg config.ForumConfig) (*ContentFilter, error) {
	f := sensitive.New()
	if cfg.SensitiveDict != "" {
		n, err := loadSensitiveWords(f, cfg.SensitiveDict)
		if err != nil {
			return nil, err
		}
		logger.Info("已加载敏感词", zap.Int("count", n), zap.String("file", cfg.SensitiveDict))
	}
	if len(cfg.SensitiveWords) > 0 {
		f.AddWord(cfg.SensitiveWords...)
	}
	return &ContentFilter{
		policy: bluemonday.UGCPolicy(),
		filter: f,
	}, nil
}

func loadSensitiveWords(f *sensitive.Filter, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "打开敏感词文件失败")
	}
	defer file.Close()

	n := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			logger.Warn("Base64解码失败，跳过该行", zap.String("line", line), zap.Error(err))
			continue
		}
		if word := strings.TrimSpace(string(decoded)); word != "" {
			f.AddWord(word)
			n++
		}
	}
	return n, errors.Wrap(scanner.Err(), "读取敏感词文件出错")
}

// Clean 去除首尾空白，含有HTML标签时按UGC白名单清理，再替换敏感词
func (c *ContentFilter) Clean(content string) string {
	content = strings.TrimSpace(content)
	// 纯文本不经过HTML转义，保证原样存取
	if htmlTag.MatchString(content) {
		content = strings.TrimSpace(c.policy.Sanitize(content))
	}
	return c.filter.Replace(content, '*')
}

// CleanContent 清理正文并按清理后的字符数校验长度
func (c *ContentFilter) CleanContent(content string, min, max int) (string, error) {
	cleaned := c.Clean(content)
	if n := validation.RuneLen(cleaned); n < min || n > max {
		return "", errcode.FieldError("content", fmt.Sprintf("content长度必须在%d-%d个字符之间", min, max))
	}
	return cleaned, nil
}

// PlainText 将markdown渲染后提取纯文本，用于搜索索引
func PlainText(markdown string) string {
	html := blackfriday.MarkdownCommon([]byte(markdown))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return markdown
	}
	doc.Find("script,style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
