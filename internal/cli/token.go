package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"academic-mesh/backend/pkg/jwt"
)

// TokenOptions token 子命令参数
type TokenOptions struct {
	*RootOptions
	Subject string
	Role    string
	TTL     time.Duration
}

// TokenResult 签发结果
type TokenResult struct {
	Token     string `json:"token"`
	Subject   string `json:"subject"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// NewTokenCommand 签发运维 / 分析 Token，仅需要配置中的密钥，不连接存储
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发 API 访问 Token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}

			ttl := opts.TTL
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := jwt.NewManager(&cfg.Auth).GenerateToken(opts.Subject, opts.Role, ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "签发 Token 失败", err)
			}

			result := TokenResult{
				Token:     token,
				Subject:   opts.Subject,
				Role:      opts.Role,
				ExpiresAt: time.Now().Add(ttl).UTC().Format(time.RFC3339),
			}
			return formatter(cmd, opts.RootOptions).Success(result, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "Token 主体（操作人）")
	cmd.Flags().StringVar(&opts.Role, "role", jwt.RoleAnalyst, "角色 (operator|analyst)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "有效期，默认取 auth.token_ttl")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
