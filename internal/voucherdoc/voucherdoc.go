// Package voucherdoc reads voucher definitions from their JSON document form,
// as used by seed files and bulk ingest files:
//
//	{
//	  "code": "LATTE20",
//	  "description": "20% off lattes",
//	  "discount": {"type": "percent", "value": "20", "cap": "15.00"},
//	  "minPurchase": "10.00",
//	  "scope": "product_level",
//	  "method": "per_product",
//	  "products": ["latte"],
//	  "maxProductsPerUse": 2,
//	  "outlets": ["O1"],
//	  "maxUsagePerUser": 3,
//	  "active": true
//	}
//
// Omitting "outlets" allows every outlet; an empty list allows none.
package voucherdoc

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

// Decode reads one voucher document from d. The rule is built with
// voucher.NewRule, so structural problems are errors; authoring checks are
// left to the caller.
func Decode(d *jx.Decoder) (voucher.Definition, error) {
	var (
		r        voucher.Rule
		def      = voucher.Definition{Active: true}
		products []string
		cats     []string
		subcats  []string
		outlets  []string
		specific bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			r.Code, err = d.Str()
		case "description":
			r.Description, err = d.Str()
		case "discount":
			r.Discount, err = decodeDiscount(d)
		case "minPurchase":
			r.MinPurchase, err = decodeDecimal(d)
		case "scope":
			var s string
			s, err = d.Str()
			r.Scope = voucher.Scope(s)
		case "method":
			var s string
			s, err = d.Str()
			r.Method = voucher.Method(s)
		case "products":
			products, err = decodeStrings(d)
		case "categories":
			cats, err = decodeStrings(d)
		case "subcategories":
			subcats, err = decodeStrings(d)
		case "maxProductsPerUse":
			r.MaxProductsPerUse, err = d.Int()
		case "outlets":
			specific = true
			outlets, err = decodeStrings(d)
		case "maxUsagePerUser":
			def.MaxUsagePerUser, err = d.Int()
		case "active":
			def.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return voucher.Definition{}, errors.Wrap(err, "decode voucher")
	}
	if def.MaxUsagePerUser < 0 {
		return voucher.Definition{}, errors.Wrapf(voucher.ErrInvalidRule, "voucher %s: negative max usage per user", r.Code)
	}

	r.Eligibility = voucher.Eligibility{
		Products:      voucher.NewIDSet(products...),
		Categories:    voucher.NewIDSet(cats...),
		Subcategories: voucher.NewIDSet(subcats...),
	}
	if specific {
		r.Outlets = voucher.SpecificOutlets(outlets...)
	}

	rule, err := voucher.NewRule(r)
	if err != nil {
		return voucher.Definition{}, err
	}
	def.Rule = rule
	return def, nil
}

// DecodeBytes decodes a single document.
func DecodeBytes(data []byte) (voucher.Definition, error) {
	return Decode(jx.DecodeBytes(data))
}

func decodeDiscount(d *jx.Decoder) (voucher.Discount, error) {
	var (
		kind  string
		value decimal.Decimal
		limit decimal.NullDecimal
		gift  string
	)
	if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "type":
			kind, err = d.Str()
		case "value":
			value, err = decodeDecimal(d)
		case "cap":
			if d.Next() == jx.Null {
				return d.Null()
			}
			limit.Decimal, err = decodeDecimal(d)
			limit.Valid = err == nil
		case "gift":
			gift, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}

	switch voucher.Kind(kind) {
	case voucher.KindPercent:
		return voucher.Percent{Value: value, Cap: limit}, nil
	case voucher.KindFixedAmount:
		return voucher.FixedAmount{Value: value}, nil
	case voucher.KindFreeGift:
		return voucher.FreeGift{GiftName: gift}, nil
	default:
		return nil, errors.Errorf("unknown discount type %q", kind)
	}
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// decodeDecimal accepts JSON strings and numbers.
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
		return decimal.Decimal{}, errors.Errorf("expected decimal, got %s", d.Next())
	}
}
