package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrDuplicateCoupon = errors.New("coupon code already exists")
)

type CouponService struct {
	coupons *repository.Repository[[]domain.Coupon]
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewCouponService(store port.KeyValueStore, keys repository.Keys, log logrus.FieldLogger) *CouponService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CouponService{
		coupons: repository.NewCollection(store, keys, repository.Coupons, domain.DefaultCoupons, log).Global(),
		now:     time.Now,
		log:     log,
	}
}

func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.coupons.Load(ctx)
}

// Find looks a coupon up by code, ignoring case.
func (s *CouponService) Find(ctx context.Context, code string) (domain.Coupon, error) {
	coupons, err := s.coupons.Load(ctx)
	if err != nil {
		return domain.Coupon{}, err
	}
	for _, c := range coupons {
		if c.Matches(code) {
			return c, nil
		}
	}
	return domain.Coupon{}, domain.ErrInvalidCoupon
}

func (s *CouponService) Create(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	if err := c.Validate(); err != nil {
		return domain.Coupon{}, err
	}
	c.ID = uuid.Must(uuid.NewV7()).String()
	c.CurrentUses = 0

	_, err := s.coupons.Update(ctx, func(list *[]domain.Coupon) error {
		for _, existing := range *list {
			if existing.Matches(c.Code) {
				return ErrDuplicateCoupon
			}
		}
		*list = append(*list, c)
		return nil
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	return c, nil
}

// Update replaces the coupon with id. The redemption counter is kept from the
// stored record so it never moves backwards.
func (s *CouponService) Update(ctx context.Context, id string, c domain.Coupon) (domain.Coupon, error) {
	if err := c.Validate(); err != nil {
		return domain.Coupon{}, err
	}

	var updated domain.Coupon
	_, err := s.coupons.Update(ctx, func(list *[]domain.Coupon) error {
		idx := -1
		for i, existing := range *list {
			if existing.ID == id {
				idx = i
			} else if existing.Matches(c.Code) {
				return ErrDuplicateCoupon
			}
		}
		if idx < 0 {
			return ErrCouponNotFound
		}
		c.ID = id
		c.CurrentUses = (*list)[idx].CurrentUses
		(*list)[idx] = c
		updated = c
		return nil
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	return updated, nil
}

func (s *CouponService) Delete(ctx context.Context, id string) error {
	_, err := s.coupons.Update(ctx, func(list *[]domain.Coupon) error {
		for i, existing := range *list {
			if existing.ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
		return ErrCouponNotFound
	})
	return err
}

// Redeem increments the usage counter of the coupon matching code. With
// enforce set it refuses coupons that are inactive, expired or used up.
func (s *CouponService) Redeem(ctx context.Context, code string, enforce bool) error {
	_, err := s.coupons.Update(ctx, func(list *[]domain.Coupon) error {
		for i := range *list {
			c := &(*list)[i]
			if !c.Matches(code) {
				continue
			}
			if enforce {
				if err := c.CheckRedeemable(s.now()); err != nil {
					return err
				}
			}
			c.CurrentUses++
			return nil
		}
		return domain.ErrInvalidCoupon
	})
	return err
}

func (s *CouponService) ActiveCount(ctx context.Context) (int, error) {
	coupons, err := s.coupons.Load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range coupons {
		if c.Active {
			n++
		}
	}
	return n, nil
}
