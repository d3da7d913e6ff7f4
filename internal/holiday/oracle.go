package holiday

// 租户级假日判定，检测 pass 内每个租户一次性拉取区间内的假日
// 查询失败必须向上抛，假日表读不到时绝不能当作工作日继续检测

import (
	"context"
	"time"

	"aegira/internal/model"
	"aegira/utils"
)

// Lister 假日区间查询，由 repository.Store 实现
type Lister interface {
	ListHolidays(ctx context.Context, companyID int64, from, to time.Time) ([]*model.Holiday, error)
}

type Oracle struct {
	lister Lister
}

func NewOracle(lister Lister) *Oracle {
	return &Oracle{lister: lister}
}

// Set 取某租户在 [from, to] 内的假日日期集合，key 为 "2006-01-02"
func (o *Oracle) Set(ctx context.Context, companyID int64, from, to time.Time) (map[string]struct{}, error) {
	holidays, err := o.lister.ListHolidays(ctx, companyID, from, to)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.HolidayDate.Format(utils.DateLayout)] = struct{}{}
	}
	return set, nil
}

// IsHoliday 单日判定
func (o *Oracle) IsHoliday(ctx context.Context, companyID int64, date time.Time) (bool, error) {
	set, err := o.Set(ctx, companyID, date, date)
	if err != nil {
		return false, err
	}
	_, ok := set[date.Format(utils.DateLayout)]
	return ok, nil
}
