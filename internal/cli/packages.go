package cli

import (
	"context"
	"fmt"
	"strings"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/model"

	"github.com/spf13/cobra"
)

func newPackagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "packages",
		Aliases: []string{"package"},
		Short:   "Subscription packages and token quota",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List purchasable packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ps, err := rt.api.Packages(ctx)
				if err != nil {
					return err
				}
				if ps == nil {
					ps = []model.Package{}
				}
				return writeOut(cmd, app, ps)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <package-id>",
		Short: "Show one package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("package id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				p, err := lookupPackage(ctx, rt, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Show the active package",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				cp, err := rt.api.CurrentPackage(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, cp)
			})
		},
	})
	cmd.AddCommand(newSubscribeCmd(app, "subscribe", "Subscribe to a package", false))
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel-renewal",
		Short: "Turn off auto renewal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				if err := rt.api.CancelRenewal(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"auto_renew": false})
			})
		},
	})
	return cmd
}

func newPayCmd(app *App) *cobra.Command {
	return newSubscribeCmd(app, "pay", "Create a payment order for a package", true)
}

// newSubscribeCmd serves both `packages subscribe` and `pay`; they differ only
// in the endpoint.
func newSubscribeCmd(app *App, use, short string, payment bool) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   use + " <package-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("package id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			method = strings.ToLower(strings.TrimSpace(method))
			if !model.ValidPaymentMethod(method) {
				return writeErr(cmd, invalidArgError{arg: "payment method (alipay|wechat)", value: method})
			}
			req := model.SubscribeRequest{PackageID: id, PaymentMethod: model.PaymentMethod(method)}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				var (
					order model.PaymentOrder
					err   error
				)
				if payment {
					pkg, perr := lookupPackage(ctx, rt, id)
					if perr != nil {
						return perr
					}
					if pkg.Price <= 0 {
						return fmt.Errorf("package %d (%s) is free; use `plotline packages subscribe %d`", pkg.ID, pkg.Name, pkg.ID)
					}
					order, err = rt.api.CreatePayment(ctx, req)
				} else {
					order, err = rt.api.Subscribe(ctx, req)
				}
				if err != nil {
					return err
				}
				return writeOut(cmd, app, order)
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", string(model.PaymentAlipay), "Payment method: alipay|wechat")
	return cmd
}

func lookupPackage(ctx context.Context, rt *runtime, id int) (model.Package, error) {
	p, err := rt.api.PackageByID(ctx, id)
	if apiclient.IsNotFound(err) {
		return model.Package{}, errNotFound("package", id)
	}
	return p, err
}

func newReferralCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Referral codes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "code",
		Short: "Show your referral code and rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				rc, err := rt.api.ReferralCode(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, rc)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "use <code>",
		Short: "Redeem someone else's referral code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				r, err := rt.api.UseReferral(ctx, code)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, r)
			})
		},
	})
	return cmd
}
