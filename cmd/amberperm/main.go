// amberperm 权限网关：权限授予/撤销、多管理员共识查询与授权节点管理
package main

import "github.com/ambertime/amberchain/internal/cli"

func main() {
	cli.Execute()
}
