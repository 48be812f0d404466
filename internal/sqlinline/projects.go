package sqlinline

const QGetProject = `--sql 9e4456f9-125f-49d1-991b-aa6a02977186
select id, name, funding_goal, wallet_id, admin_user_id, created_at
from projects
where id = $1::uuid;
`

const QProjectExists = `--sql 07102a78-5a35-4a37-9c2b-8327cddf7d20
select exists(select 1 from projects where id = $1::uuid);
`

const QProjectWallets = `--sql 76e2494f-9604-4356-a9ac-8f274748dfbd
select id, wallet_id
from projects
where id = any($1::uuid[]);
`

const QGetMilestone = `--sql a7f3585c-fa0f-4911-af6e-c61cc38ab15c
select id, project_id, title, percentage, position, created_at
from milestones
where id = $1::uuid;
`

const QMilestoneExecutedTotal = `--sql 6d98e371-e2e1-48ca-8ed2-8f045566322a
select coalesce(sum(amount), 0)
from proposals
where milestone_id = $1::uuid and status = 'executed';
`
