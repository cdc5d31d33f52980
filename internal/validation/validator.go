// Package validation 封装请求参数校验，错误统一转换为字段级的校验错误
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
)

// 与gin绑定共用binding标签，服务层直接调用时得到相同的规则
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	configure(v)
	return v
}

// RegisterGin 为gin的默认校验引擎注册相同的字段命名与自定义规则
func RegisterGin() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("trimmed_len", trimmedLen)
}

// trimmedLen 校验去除首尾空白后的字符数，参数格式为 "min-max"
func trimmedLen(fl validator.FieldLevel) bool {
	min, max, ok := parseRange(fl.Param())
	if !ok {
		return false
	}
	n := RuneLen(fl.Field().String())
	return n >= min && n <= max
}

func parseRange(param string) (int, int, bool) {
	parts := strings.SplitN(param, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	min, err1 := strconv.Atoi(parts[0])
	max, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return min, max, true
}

// RuneLen 返回去除首尾空白后的Unicode字符数
func RuneLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Struct 校验结构体，失败时返回 *errcode.Error
func Struct(i interface{}) error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errcode.Validation("参数校验失败", nil)
	}
	return fromValidationErrors(errs)
}

func fromValidationErrors(errs validator.ValidationErrors) error {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = FormatFieldError(fe)
	}
	return errcode.Validation(FormatFieldError(errs[0]), fields)
}

// FromBindError 转换gin绑定阶段的错误
func FromBindError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		return fromValidationErrors(errs)
	}
	return errcode.Validation("请求参数格式错误", nil)
}

// FormatFieldError 格式化单个字段的校验错误
func FormatFieldError(fe validator.FieldError) string {
	// 定义错误信息映射
	msgMap := map[string]string{
		"required":    "不能为空",
		"min":         "不能小于%v",
		"max":         "不能大于%v",
		"oneof":       "必须是[%v]中的一个",
		"gt":          "必须大于%v",
		"gte":         "必须大于等于%v",
		"lte":         "必须小于等于%v",
		"trimmed_len": "长度必须在%v个字符之间",
		"dive":        "元素无效",
	}

	msgTemplate := msgMap[fe.Tag()]
	if msgTemplate == "" {
		msgTemplate = "验证失败"
	}
	if fe.Param() != "" && strings.Contains(msgTemplate, "%v") {
		return fe.Field() + fmt.Sprintf(msgTemplate, fe.Param())
	}
	return fe.Field() + msgTemplate
}
