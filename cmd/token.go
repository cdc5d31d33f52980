package cmd

import (
	"fmt"
	"os"

	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/policy"
	"github.com/nsxzhou1114/lms-forum-api/pkg/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUserID uint
	tokenRole   string
)

// tokenCmd 签发开发用访问令牌
// 示例：./lms-forum-api token --user 1 --role admin
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发开发用访问令牌",
	Long:  `使用配置中的密钥为指定用户签发访问令牌，正式环境的令牌由认证服务签发`,
	Run: func(cmd *cobra.Command, args []string) {
		issueToken()
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUserID, "user", 0, "用户ID")
	tokenCmd.Flags().StringVar(&tokenRole, "role", policy.RoleStudent, "角色: admin/moderator/instructor/student")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}

// issueToken 输出令牌
func issueToken() {
	if err := config.Init(configPath); err != nil {
		fmt.Printf("配置初始化失败: %v\n", err)
		os.Exit(1)
	}

	switch tokenRole {
	case policy.RoleAdmin, policy.RoleModerator, policy.RoleInstructor, policy.RoleStudent:
	default:
		fmt.Printf("未知角色: %s\n", tokenRole)
		os.Exit(1)
	}

	token, err := auth.NewManager(config.GlobalConfig.JWT).GenerateToken(tokenUserID, tokenRole)
	if err != nil {
		fmt.Printf("签发令牌失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
