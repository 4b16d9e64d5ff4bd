package controller

import "fmt"

func (c controller) generateTimeBasedId() string {
	return fmt.Sprintf("%d-%s", c.clock.Now().UnixMilli(), c.randstr.GenerateRandomString(6))
}
