package orchestrator

import (
	"fmt"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/pkg/llm"
)

// completionFor renders an item-keyed prompt template into a completion
// request.
func completionFor(template string, analysis model.ItemAnalysis) llm.CompletionRequest {
	return llm.CompletionRequest{Prompt: fmt.Sprintf(template, describeItem(analysis))}
}

// Prompts sent to the model. Every prompt demands a bare JSON object; the
// schema package still tolerates fenced or prose-wrapped answers.

const analysisImagePrompt = `你是一名二手物品鉴定师。分析图片中的物品,输出 JSON 对象,字段:
category(类别,必填)、sub_category(子类别)、brand(品牌)、condition(成色)、
material(材质)、color(颜色)、keywords(关键词数组,最多10个)、
description(简短描述)、estimated_age(估计使用年限)、special_features(特殊特征)。
只输出 JSON,不要其他内容。`

const analysisTextPrompt = `你是一名二手物品鉴定师。根据用户的文字描述分析物品,输出 JSON 对象,字段:
category(类别,必填)、sub_category(子类别)、brand(品牌)、condition(成色)、
material(材质)、color(颜色)、keywords(关键词数组,最多10个)、
description(简短描述)、estimated_age(估计使用年限)、special_features(特殊特征)。
只输出 JSON,不要其他内容。用户描述:`

const scoringPromptTemplate = `你是闲置物品处置顾问。针对下面的物品,为三种处置路径分别打分(0-100),
并给出简短理由标签。三项分数总和应在 80-120 之间。输出 JSON:
{"creative_score": 数值, "creative_reasons": ["标签"], "recycling_score": 数值,
"recycling_reasons": ["标签"], "secondhand_score": 数值, "secondhand_reasons": ["标签"],
"recommendation": "creative|recycling|secondhand"}
物品信息:%s`

const renovationPromptTemplate = `你是创意改造达人。为下面的闲置物品设计一个可动手完成的改造方案。输出 JSON:
{"title": "方案名", "difficulty": "简单|中等|困难", "cost_range": "费用区间",
"time_needed": "耗时", "steps": ["步骤"], "materials": ["所需材料"], "safety_notes": ["安全提示"]}
物品信息:%s`

const platformPromptTemplate = `你是环保回收顾问。为下面的闲置物品推荐合适的回收或捐赠渠道(线上平台或通用渠道均可)。
输出 JSON:{"platforms": [{"name": "渠道名", "kind": "回收|捐赠", "description": "说明", "steps": "参与方式"}]}
物品信息:%s`

const listingPromptTemplate = `你是二手交易文案高手。为下面的物品写一条转卖信息。输出 JSON:
{"title": "标题(30字以内)", "description": "正文(500字以内)", "highlights": ["卖点"], "suggested_price": "建议售价"}
物品信息:%s`
