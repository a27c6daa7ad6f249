// Package validate 注册自定义校验规则，并把 validator 的错误转换为字段级提示
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// phonePattern 中国大陆手机号
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

var once sync.Once

// Setup 在 gin 的校验引擎上注册自定义规则，可重复调用
//   - cnphone: 中国大陆手机号
//   - 字段名使用 json 标签，与前端提交的字段一致
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("cnphone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
	})
}

// IsPhone 判断是否为合法手机号
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// FieldErrors 将绑定错误转换为 字段 -> 错误信息 的映射
// 返回:
//   - map[string][]string: 字段错误，err 不是校验错误时返回 nil
func FieldErrors(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], message(fe))
	}
	return fields
}

// Field 构造单字段错误
func Field(name, msg string) map[string][]string {
	return map[string][]string{name: {msg}}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能少于 %s 个字符", fe.Param())
		}
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能超过 %s 个字符", fe.Param())
		}
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "len":
		return fmt.Sprintf("长度必须为 %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("必须是以下之一: %s", fe.Param())
	case "eqfield":
		return "两次输入的密码不一致"
	case "cnphone":
		return "手机号格式不正确"
	case "numeric":
		return "只能包含数字"
	case "datetime":
		return fmt.Sprintf("日期格式应为 %s", fe.Param())
	case "url":
		return "不是合法的链接"
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	}
	return "格式不正确"
}
