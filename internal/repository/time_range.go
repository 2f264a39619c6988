package repository

import (
	"fmt"
	"time"
)

// WeekWindow 周统计窗口天数
const WeekWindow = 7 * 24 * time.Hour

// WeekStart 返回 now 之前 7 天的起点（滚动窗口，非自然周）
func WeekStart(now time.Time) time.Time {
	return now.Add(-WeekWindow)
}

// DayRange 将 YYYY-MM-DD 解析为本地日区间 [start, end)
func DayRange(date string) (start time.Time, end time.Time, err error) {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("解析日期失败: %w", err)
	}
	return t, t.AddDate(0, 0, 1), nil
}
