// Copyright 2026 ClarityCast Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 ClarityCast 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertErrorType / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockProvider，脚本化的 llm.Provider，支持错误注入与调用记录
  - testutil/fixtures: 每种模式的合法结构化输出、Communicate 输出构造器与畸形输出

# 使用示例

	provider := mocks.NewMockProvider().WithResponses(fixtures.NotJSON, fixtures.DecisionJSON)
	svc := clarity.NewService(structured.NewPipeline(provider), nil)
	res, err := svc.Clarify(testutil.TestContext(t), req)
*/
package testutil
