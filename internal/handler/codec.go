package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/order"
	"github.com/xenking/outlet-rewards/internal/domain/pricing"
	"github.com/xenking/outlet-rewards/internal/domain/product"
)

const maxBodySize = 64 << 10

// decodeObject reads a JSON object from the request body, calling field for
// every key. Unknown keys must be skipped by field.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 512)
	if err := d.Obj(field); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// decodeDecimal accepts both JSON strings and numbers.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.New("amount must be a string or number")
	}
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(pricing.MoneyPlaces))
}

func moneyField(e *jx.Encoder, name string, d decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { money(e, d) })
}

func strField(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			e.Obj(func(e *jx.Encoder) {
				strField(e, "id", p.ID)
				strField(e, "name", p.Name)
				moneyField(e, "price", p.Price)
				strField(e, "categoryId", p.CategoryID)
				strField(e, "subcategoryId", p.SubcategoryID)
			})
		}
	})
}

func encodeQuote(e *jx.Encoder, q *cart.Quote) {
	s, t := q.Session, q.Totals

	shares := make(map[string]decimal.Decimal, len(t.Items))
	for _, sh := range t.Items {
		shares[sh.ItemID] = sh.Amount
	}

	e.Obj(func(e *jx.Encoder) {
		strField(e, "userId", s.UserID)
		strField(e, "outletId", s.OutletID)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range s.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "id", it.ID)
						strField(e, "productId", it.ProductID)
						moneyField(e, "unitPrice", it.UnitPrice)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						moneyField(e, "amount", it.Amount())
						moneyField(e, "discount", shares[it.ID])
					})
				}
			})
		})
		e.Field("voucher", func(e *jx.Encoder) {
			rule := s.Rule()
			if rule == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				strField(e, "code", rule.Code)
				strField(e, "description", rule.Description)
				if rule.Discount != nil {
					strField(e, "kind", string(rule.Discount.Kind()))
				}
				e.Field("usageCount", func(e *jx.Encoder) { e.Int(s.Voucher.UsageCount) })
				e.Field("maxUsageCount", func(e *jx.Encoder) { e.Int(s.Voucher.MaxUsageCount) })
			})
		})
		e.Field("bonus", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				moneyField(e, "requested", s.Bonus)
				moneyField(e, "balance", q.Balance)
				moneyField(e, "ceiling", pricing.BonusCeiling(t.Subtotal, t.VoucherDiscount))
			})
		})
		e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, t) })
		e.Field("points", func(e *jx.Encoder) {
			methods := make([]string, 0, len(q.Points))
			for m := range q.Points {
				methods = append(methods, string(m))
			}
			sort.Strings(methods)
			e.Obj(func(e *jx.Encoder) {
				for _, m := range methods {
					e.Field(m, func(e *jx.Encoder) { e.Int64(q.Points[pricing.PaymentMethod(m)]) })
				}
			})
		})
	})
}

func encodeTotals(e *jx.Encoder, t pricing.Totals) {
	e.Obj(func(e *jx.Encoder) {
		moneyField(e, "subtotal", t.Subtotal)
		moneyField(e, "voucherDiscount", t.VoucherDiscount)
		moneyField(e, "bonusDiscount", t.BonusDiscount)
		moneyField(e, "savings", t.Savings())
		moneyField(e, "payable", t.PayableTotal)
		if t.Gift != "" {
			strField(e, "gift", t.Gift)
		}
		e.Field("trace", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, step := range t.Trace.Steps {
					e.Obj(func(e *jx.Encoder) {
						if step.Index != pricing.OrderLevel {
							e.Field("index", func(e *jx.Encoder) { e.Int(step.Index) })
							strField(e, "itemId", step.ItemID)
						}
						strField(e, "reason", string(step.Reason))
						if step.Detail != "" {
							strField(e, "detail", step.Detail)
						}
					})
				}
			})
		})
	})
}

func encodeOrder(e *jx.Encoder, res *order.PlaceOrderResult) {
	o := res.Order
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", o.ID)
		strField(e, "userId", o.UserID)
		strField(e, "outletId", o.OutletID)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "productId", it.ProductID)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						moneyField(e, "unitPrice", it.UnitPrice)
						moneyField(e, "discount", it.Discount)
					})
				}
			})
		})
		moneyField(e, "subtotal", o.Subtotal)
		moneyField(e, "voucherDiscount", o.VoucherDiscount)
		moneyField(e, "bonusDiscount", o.BonusDiscount)
		moneyField(e, "total", o.Total)
		if o.VoucherCode != "" {
			strField(e, "voucherCode", o.VoucherCode)
		}
		if o.Gift != "" {
			strField(e, "gift", o.Gift)
		}
		strField(e, "paymentMethod", string(o.PaymentMethod))
		e.Field("pointsEarned", func(e *jx.Encoder) { e.Int64(o.PointsEarned) })
		strField(e, "createdAt", o.CreatedAt.UTC().Format(time.RFC3339))
		e.Field("pricing", func(e *jx.Encoder) { encodeTotals(e, res.Totals) })
	})
}
